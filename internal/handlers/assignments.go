package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/middleware"
	"github.com/guildhall-io/guildhall/internal/permissions"
	"github.com/guildhall-io/guildhall/internal/services"
	"github.com/guildhall-io/guildhall/pkg/errors"
	"github.com/guildhall-io/guildhall/pkg/response"
)

type AssignmentHandler struct {
	svc *services.AssignmentService
}

func NewAssignmentHandler(db *gorm.DB, cache services.Invalidator) (*AssignmentHandler, error) {
	svc, err := services.NewAssignmentService(db, cache)
	if err != nil {
		return nil, err
	}
	return &AssignmentHandler{svc: svc}, nil
}

type createAssignmentRequest struct {
	ResourceID    string     `json:"resource_id" validate:"required"`
	ResourceType  string     `json:"resource_type" validate:"required"`
	Level         string     `json:"level" validate:"required"`
	AssigneeGroup string     `json:"assignee_group" validate:"required"`
	AssigneeID    string     `json:"assignee_id"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// POST /api/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	var body createAssignmentRequest
	if !bindAndValidate(c, &body) {
		return
	}

	assignment, err := h.svc.Create(requestContext(c), services.CreateAssignmentInput{
		ResourceID:   body.ResourceID,
		ResourceType: body.ResourceType,
		Level:        body.Level,
		Assignee: permissions.Assignee{
			Group: permissions.AssigneeGroup(body.AssigneeGroup),
			ID:    body.AssigneeID,
		},
		GrantedByID: middleware.ActorID(c),
		ExpiresAt:   body.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, assignment)
}

// DELETE /api/assignments/:id
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/assignments?resource_id=...&resource_type=...
func (h *AssignmentHandler) List(c *gin.Context) {
	resourceID := c.Query("resource_id")
	if resourceID == "" {
		response.Error(c, errors.NewBadRequest("resource_id is required"))
		return
	}

	assignments, err := h.svc.List(requestContext(c), resourceID, c.Query("resource_type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, assignments)
}
