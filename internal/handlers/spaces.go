package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/middleware"
	"github.com/guildhall-io/guildhall/internal/services"
	"github.com/guildhall-io/guildhall/pkg/errors"
	"github.com/guildhall-io/guildhall/pkg/response"
)

type SpaceHandler struct {
	svc *services.SpaceService
}

func NewSpaceHandler(db *gorm.DB) (*SpaceHandler, error) {
	svc, err := services.NewSpaceService(db)
	if err != nil {
		return nil, err
	}
	return &SpaceHandler{svc: svc}, nil
}

type createSpaceRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=200"`
	Domain string `json:"domain" validate:"required,min=1,max=100"`
	Tier   string `json:"tier"`
}

// POST /api/spaces
func (h *SpaceHandler) Create(c *gin.Context) {
	var body createSpaceRequest
	if !bindAndValidate(c, &body) {
		return
	}

	actorID := middleware.ActorID(c)
	if actorID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	space, err := h.svc.Create(requestContext(c), services.CreateSpaceInput{
		Name:      body.Name,
		Domain:    body.Domain,
		Tier:      body.Tier,
		CreatedBy: actorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, space)
}

// GET /api/spaces/:id
func (h *SpaceHandler) Get(c *gin.Context) {
	space, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, space)
}

type setTierRequest struct {
	Tier string `json:"tier" validate:"required"`
}

// PATCH /api/spaces/:id/tier
func (h *SpaceHandler) SetTier(c *gin.Context) {
	var body setTierRequest
	if !bindAndValidate(c, &body) {
		return
	}

	space, err := h.svc.SetTier(requestContext(c), c.Param("id"), body.Tier)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, space)
}

// GET /api/spaces/:id/workflow-limit
func (h *SpaceHandler) WorkflowLimit(c *gin.Context) {
	limit, err := h.svc.WorkflowLimit(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"limit": limit})
}

type addSpaceMemberRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	IsAdmin bool   `json:"is_admin"`
}

// POST /api/spaces/:id/members
func (h *SpaceHandler) AddMember(c *gin.Context) {
	var body addSpaceMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	member, err := h.svc.AddMember(requestContext(c), c.Param("id"), body.UserID, body.IsAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, member)
}

// DELETE /api/spaces/:id/members/:userID
func (h *SpaceHandler) RemoveMember(c *gin.Context) {
	if err := h.svc.RemoveMember(requestContext(c), c.Param("id"), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

type setAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// PATCH /api/spaces/:id/members/:userID
func (h *SpaceHandler) SetAdmin(c *gin.Context) {
	var body setAdminRequest
	if !bindAndValidate(c, &body) {
		return
	}

	member, err := h.svc.SetAdmin(requestContext(c), c.Param("id"), c.Param("userID"), body.IsAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// GET /api/spaces/:id/members
func (h *SpaceHandler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}
