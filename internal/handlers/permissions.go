package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guildhall-io/guildhall/internal/middleware"
	"github.com/guildhall-io/guildhall/internal/permissions"
	"github.com/guildhall-io/guildhall/pkg/errors"
	"github.com/guildhall-io/guildhall/pkg/response"
)

// PermissionHandler exposes the permission engine over HTTP. Single-resource
// computations flow through the caching layer when one is configured; bulk
// and rollup queries always hit the engine directly.
type PermissionHandler struct {
	computer middleware.FlagComputer
	engine   *permissions.Engine
}

func NewPermissionHandler(computer middleware.FlagComputer, engine *permissions.Engine) (*PermissionHandler, error) {
	if computer == nil || engine == nil {
		return nil, stderrors.New("permission handler: computer and engine are required")
	}
	return &PermissionHandler{computer: computer, engine: engine}, nil
}

// translateEngineError maps engine sentinels onto API error codes.
func translateEngineError(err error) error {
	switch {
	case stderrors.Is(err, permissions.ErrNotFound):
		return errors.ErrNotFound
	case stderrors.Is(err, permissions.ErrUnknownResourceType):
		return errors.NewBadRequest(err.Error())
	default:
		return err
	}
}

// GET /api/permissions/compute?resource_id=...&resource_type=...
func (h *PermissionHandler) Compute(c *gin.Context) {
	resourceID := c.Query("resource_id")
	resourceType, err := permissions.ParseResourceType(c.Query("resource_type"))
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}
	if resourceID == "" {
		response.Error(c, errors.NewBadRequest("resource_id is required"))
		return
	}

	flags, err := h.computer.Compute(requestContext(c), resourceID, resourceType, middleware.ActorID(c))
	if err != nil {
		response.Error(c, translateEngineError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"flags": flags})
}

type bulkComputeRequest struct {
	SpaceID      string `json:"space_id" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required"`
	CreatedBy    string `json:"created_by"`
	Status       string `json:"status"`
	CategoryID   string `json:"category_id"`
}

type bulkComputeEntry struct {
	Flags permissions.FlagMap `json:"flags,omitempty"`
	Error string              `json:"error,omitempty"`
}

// POST /api/permissions/bulk
func (h *PermissionHandler) BulkCompute(c *gin.Context) {
	var body bulkComputeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	resourceType, err := permissions.ParseResourceType(body.ResourceType)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	var filter *permissions.ListFilter
	if body.CreatedBy != "" || body.Status != "" || body.CategoryID != "" {
		filter = &permissions.ListFilter{
			CreatedBy:  body.CreatedBy,
			Status:     body.Status,
			CategoryID: body.CategoryID,
		}
	}

	results, err := h.engine.BulkCompute(requestContext(c), body.SpaceID, resourceType, middleware.ActorID(c), filter)
	if err != nil {
		response.Error(c, translateEngineError(err))
		return
	}

	entries := make(map[string]bulkComputeEntry, len(results))
	for id, result := range results {
		entry := bulkComputeEntry{Flags: result.Flags}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}
		entries[id] = entry
	}
	response.Success(c, http.StatusOK, gin.H{"results": entries})
}

// GET /api/permissions/rollup?resource_id=...&resource_type=...
func (h *PermissionHandler) Rollup(c *gin.Context) {
	resourceID := c.Query("resource_id")
	resourceType, err := permissions.ParseResourceType(c.Query("resource_type"))
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}
	if resourceID == "" {
		response.Error(c, errors.NewBadRequest("resource_id is required"))
		return
	}

	rollup, err := h.engine.Rollup(requestContext(c), resourceID, resourceType, middleware.ActorID(c))
	if err != nil {
		response.Error(c, translateEngineError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"levels": rollup})
}
