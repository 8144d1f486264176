package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guildhall-io/guildhall/internal/handlers/testutil"
	"github.com/guildhall-io/guildhall/internal/models"
)

func TestHealthEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := testutil.DecodeResponse(t, w)
	require.True(t, resp.Success)
}

func TestSpaceLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)

	env.CreateUser("founder")
	token := env.TokenFor("founder")

	// Anonymous creation is rejected
	w := env.Request(http.MethodPost, "/api/spaces", map[string]any{
		"name":   "Craft Guild",
		"domain": "craft-guild",
	}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Request(http.MethodPost, "/api/spaces", map[string]any{
		"name":   "Craft Guild",
		"domain": "craft-guild",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var space models.Space
	resp := testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &space)
	require.Equal(t, "craft-guild", space.Domain)
	require.Equal(t, models.TierFree, space.Tier)

	// Founder is seeded as admin
	w = env.Request(http.MethodGet, "/api/spaces/"+space.ID+"/members", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var members []models.SpaceMember
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &members)
	require.Len(t, members, 1)
	require.True(t, members[0].IsAdmin)

	// Tier upgrade changes the workflow limit
	w = env.Request(http.MethodPatch, "/api/spaces/"+space.ID+"/tier", map[string]any{"tier": models.TierBronze}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/spaces/"+space.ID+"/workflow-limit", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var limit struct {
		Limit int `json:"limit"`
	}
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &limit)
	require.Equal(t, 10, limit.Limit)
}

func TestPermissionComputeOverHTTP(t *testing.T) {
	env := testutil.NewEnv(t)

	creator := env.CreateUser("creator")
	outsider := env.CreateUser("outsider")

	space := models.Space{Name: "Guild", Domain: "guild", Tier: models.TierFree}
	require.NoError(t, env.DB.Create(&space).Error)
	require.NoError(t, env.DB.Create(&models.SpaceMember{
		SpaceID: space.ID,
		UserID:  creator.ID,
	}).Error)

	page := models.Page{SpaceID: space.ID, CreatedBy: creator.ID, Title: "Charter"}
	require.NoError(t, env.DB.Create(&page).Error)

	// Creator holds the full page operation set
	w := env.Request(http.MethodGet,
		"/api/permissions/compute?resource_id="+page.ID+"&resource_type=page",
		nil, env.TokenFor(creator.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var computed struct {
		Flags map[string]bool `json:"flags"`
	}
	resp := testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &computed)
	require.True(t, computed.Flags["view"])
	require.True(t, computed.Flags["edit"])

	// Outsiders and visitors see nothing until a public grant exists
	w = env.Request(http.MethodGet,
		"/api/permissions/compute?resource_id="+page.ID+"&resource_type=page",
		nil, env.TokenFor(outsider.ID))
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &computed)
	require.False(t, computed.Flags["view"])

	w = env.Request(http.MethodPost, "/api/assignments", map[string]any{
		"resource_id":    page.ID,
		"resource_type":  "page",
		"level":          "viewer",
		"assignee_group": "public",
	}, env.TokenFor(creator.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Anonymous request now reads the page
	w = env.Request(http.MethodGet,
		"/api/permissions/compute?resource_id="+page.ID+"&resource_type=page",
		nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &computed)
	require.True(t, computed.Flags["view"])
	require.False(t, computed.Flags["edit"])

	// Write levels can never be granted to the public group
	w = env.Request(http.MethodPost, "/api/assignments", map[string]any{
		"resource_id":    page.ID,
		"resource_type":  "page",
		"level":          "editor",
		"assignee_group": "public",
	}, env.TokenFor(creator.ID))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestPermissionComputeUnknownResource(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet,
		"/api/permissions/compute?resource_id=missing&resource_type=page", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodGet,
		"/api/permissions/compute?resource_id=x&resource_type=widget", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkComputeOverHTTP(t *testing.T) {
	env := testutil.NewEnv(t)

	creator := env.CreateUser("author")

	space := models.Space{Name: "Guild", Domain: "bulk-guild", Tier: models.TierFree}
	require.NoError(t, env.DB.Create(&space).Error)
	require.NoError(t, env.DB.Create(&models.SpaceMember{
		SpaceID: space.ID,
		UserID:  creator.ID,
	}).Error)

	first := models.Page{SpaceID: space.ID, CreatedBy: creator.ID, Title: "One"}
	second := models.Page{SpaceID: space.ID, CreatedBy: "someone-else", Title: "Two"}
	require.NoError(t, env.DB.Create(&first).Error)
	require.NoError(t, env.DB.Create(&second).Error)

	w := env.Request(http.MethodPost, "/api/permissions/bulk", map[string]any{
		"space_id":      space.ID,
		"resource_type": "page",
	}, env.TokenFor(creator.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var bulk struct {
		Results map[string]struct {
			Flags map[string]bool `json:"flags"`
		} `json:"results"`
	}
	resp := testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &bulk)
	require.Len(t, bulk.Results, 2)
	require.True(t, bulk.Results[first.ID].Flags["edit"])
	require.False(t, bulk.Results[second.ID].Flags["edit"])

	// created_by filter narrows the result set
	w = env.Request(http.MethodPost, "/api/permissions/bulk", map[string]any{
		"space_id":      space.ID,
		"resource_type": "page",
		"created_by":    creator.ID,
	}, env.TokenFor(creator.ID))
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.DecodeResponse(t, w)
	bulk.Results = nil
	testutil.DecodeInto(t, resp.Data, &bulk)
	require.Len(t, bulk.Results, 1)
}

func TestRoleRoutes(t *testing.T) {
	env := testutil.NewEnv(t)

	admin := env.CreateUser("admin")
	member := env.CreateUser("member")
	token := env.TokenFor(admin.ID)

	space := models.Space{Name: "Guild", Domain: "role-guild", Tier: models.TierFree}
	require.NoError(t, env.DB.Create(&space).Error)
	require.NoError(t, env.DB.Create(&models.SpaceMember{SpaceID: space.ID, UserID: admin.ID, IsAdmin: true}).Error)
	require.NoError(t, env.DB.Create(&models.SpaceMember{SpaceID: space.ID, UserID: member.ID}).Error)

	w := env.Request(http.MethodPost, "/api/roles", map[string]any{
		"space_id": space.ID,
		"name":     "Reviewers",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var role models.Role
	resp := testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &role)
	require.Equal(t, "Reviewers", role.Name)

	w = env.Request(http.MethodPost, "/api/roles/"+role.ID+"/members", map[string]any{
		"user_id": member.ID,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/roles?space_id="+space.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var roles []models.Role
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &roles)
	require.Len(t, roles, 1)

	w = env.Request(http.MethodDelete, "/api/roles/"+role.ID+"/members/"+member.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Role mutations require authentication
	w = env.Request(http.MethodDelete, "/api/roles/"+role.ID, nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRollupOverHTTP(t *testing.T) {
	env := testutil.NewEnv(t)

	creator := env.CreateUser("owner")

	space := models.Space{Name: "Guild", Domain: "rollup-guild", Tier: models.TierFree}
	require.NoError(t, env.DB.Create(&space).Error)
	require.NoError(t, env.DB.Create(&models.SpaceMember{SpaceID: space.ID, UserID: creator.ID}).Error)

	page := models.Page{SpaceID: space.ID, CreatedBy: creator.ID, Title: "Docs"}
	require.NoError(t, env.DB.Create(&page).Error)

	w := env.Request(http.MethodPost, "/api/assignments", map[string]any{
		"resource_id":    page.ID,
		"resource_type":  "page",
		"level":          "viewer",
		"assignee_group": "public",
	}, env.TokenFor(creator.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.Request(http.MethodGet,
		"/api/permissions/rollup?resource_id="+page.ID+"&resource_type=page",
		nil, env.TokenFor(creator.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rollup struct {
		Levels map[string][]struct {
			Group string `json:"group"`
			ID    string `json:"id"`
		} `json:"levels"`
	}
	resp := testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &rollup)
	require.NotEmpty(t, rollup.Levels["viewer"])
}
