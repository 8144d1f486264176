package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/guildhall-io/guildhall/internal/permissions"
)

type fakeComputer struct {
	flags map[string]permissions.FlagMap
	err   error
}

func (f *fakeComputer) Compute(_ context.Context, resourceID string, _ permissions.ResourceType, _ string) (permissions.FlagMap, error) {
	if f.err != nil {
		return nil, f.err
	}
	flags, ok := f.flags[resourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", permissions.ErrNotFound, resourceID)
	}
	return flags, nil
}

func newOperationRouter(computer FlagComputer) *gin.Engine {
	r := gin.New()
	r.POST("/pages/:id/edit",
		RequireOperation(computer, permissions.ResourcePage, permissions.OpEdit, "id"),
		func(c *gin.Context) { c.Status(http.StatusNoContent) },
	)
	return r
}

func TestRequireOperationAllowsHolder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := newOperationRouter(&fakeComputer{flags: map[string]permissions.FlagMap{
		"page-1": {permissions.OpEdit: true},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pages/page-1/edit", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireOperationDeniesMissingFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := newOperationRouter(&fakeComputer{flags: map[string]permissions.FlagMap{
		"page-1": {permissions.OpView: true},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pages/page-1/edit", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireOperationUnknownResource(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := newOperationRouter(&fakeComputer{flags: map[string]permissions.FlagMap{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pages/missing/edit", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireOperationComputeFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := newOperationRouter(&fakeComputer{err: fmt.Errorf("store unavailable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pages/page-1/edit", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
