package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/services"
	"github.com/guildhall-io/guildhall/pkg/errors"
	"github.com/guildhall-io/guildhall/pkg/response"
)

type RoleHandler struct {
	svc *services.RoleService
}

func NewRoleHandler(db *gorm.DB) (*RoleHandler, error) {
	svc, err := services.NewRoleService(db)
	if err != nil {
		return nil, err
	}
	return &RoleHandler{svc: svc}, nil
}

type createRoleRequest struct {
	SpaceID string `json:"space_id" validate:"required"`
	Name    string `json:"name" validate:"required,min=1,max=120"`
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body createRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.Create(requestContext(c), services.CreateRoleInput{
		SpaceID: body.SpaceID,
		Name:    body.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

type updateRoleRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=120"`
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var body updateRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.Update(requestContext(c), c.Param("id"), services.UpdateRoleInput{Name: body.Name})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/roles?space_id=...
func (h *RoleHandler) List(c *gin.Context) {
	spaceID := c.Query("space_id")
	if spaceID == "" {
		response.Error(c, errors.NewBadRequest("space_id is required"))
		return
	}

	roles, err := h.svc.ListBySpace(requestContext(c), spaceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

type roleMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// POST /api/roles/:id/members
func (h *RoleHandler) AddMember(c *gin.Context) {
	var body roleMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	membership, err := h.svc.AddMember(requestContext(c), c.Param("id"), body.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, membership)
}

// DELETE /api/roles/:id/members/:userID
func (h *RoleHandler) RemoveMember(c *gin.Context) {
	if err := h.svc.RemoveMember(requestContext(c), c.Param("id"), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
