package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/models"
	"github.com/guildhall-io/guildhall/internal/permissions"
	apperrors "github.com/guildhall-io/guildhall/pkg/errors"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = apperrors.New("ASSIGNMENT_NOT_FOUND", "Permission assignment not found", http.StatusNotFound)
	// ErrPublicLevelNotAllowed signals an attempt to hand a write-capable
	// level to the anonymous public.
	ErrPublicLevelNotAllowed = apperrors.New("PUBLIC_LEVEL_NOT_ALLOWED", "Public assignees may only carry read levels", http.StatusBadRequest)
)

// Invalidator drops cached flag maps after an assignment mutation. The
// permission cache implements it; a nil invalidator is valid and means no
// cache is in play.
type Invalidator interface {
	Invalidate(ctx context.Context, resourceID string, t permissions.ResourceType, actorIDs ...string) error
}

// CreateAssignmentInput captures one new permission grant.
type CreateAssignmentInput struct {
	ResourceID   string
	ResourceType string
	Level        string
	Assignee     permissions.Assignee
	GrantedByID  string
	ExpiresAt    *time.Time
}

// AssignmentService owns the write side of permission assignments. The
// engine only ever reads the rows this service maintains.
type AssignmentService struct {
	db    *gorm.DB
	cache Invalidator
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(db *gorm.DB, cache Invalidator) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	return &AssignmentService{db: db, cache: cache}, nil
}

// Create validates and persists a permission assignment. Public assignees
// are restricted to read levels here, at the single write path, so the
// engine can trust every stored row.
func (s *AssignmentService) Create(ctx context.Context, input CreateAssignmentInput) (*models.PermissionAssignment, error) {
	ctx = ensureContext(ctx)

	resourceID := strings.TrimSpace(input.ResourceID)
	if resourceID == "" {
		return nil, apperrors.NewBadRequest("resource id is required")
	}

	resourceType, err := permissions.ParseResourceType(strings.TrimSpace(input.ResourceType))
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	level := permissions.Level(strings.TrimSpace(input.Level))
	if !permissions.LevelValid(resourceType, level) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("level %q is not defined for %s", level, resourceType))
	}

	if err := input.Assignee.Validate(); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	if input.Assignee.Group == permissions.GroupPublic && !permissions.LevelAllowsPublic(resourceType, level) {
		return nil, ErrPublicLevelNotAllowed
	}

	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		return nil, apperrors.NewBadRequest("expiry must be in the future")
	}

	if err := s.ensureAssigneeExists(ctx, input.Assignee); err != nil {
		return nil, err
	}

	row := &models.PermissionAssignment{
		ResourceID:   resourceID,
		ResourceType: string(resourceType),
		Level:        string(level),
		GroupType:    string(input.Assignee.Group),
		ExpiresAt:    input.ExpiresAt,
	}
	switch input.Assignee.Group {
	case permissions.GroupUser:
		row.UserID = &input.Assignee.ID
	case permissions.GroupRole:
		row.RoleID = &input.Assignee.ID
	case permissions.GroupSpace:
		row.SpaceID = &input.Assignee.ID
	}
	if granted := strings.TrimSpace(input.GrantedByID); granted != "" {
		row.GrantedByID = &granted
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("assignment service: create assignment: %w", err)
	}

	s.invalidate(ctx, resourceID, resourceType, input.Assignee)
	return row, nil
}

// Delete removes one assignment row.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var row models.PermissionAssignment
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAssignmentNotFound
	}
	if err != nil {
		return fmt.Errorf("assignment service: load assignment: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.PermissionAssignment{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("assignment service: delete assignment: %w", err)
	}

	assignee := permissions.Assignee{Group: permissions.AssigneeGroup(row.GroupType)}
	switch {
	case row.UserID != nil:
		assignee.ID = *row.UserID
	case row.RoleID != nil:
		assignee.ID = *row.RoleID
	case row.SpaceID != nil:
		assignee.ID = *row.SpaceID
	}
	s.invalidate(ctx, row.ResourceID, permissions.ResourceType(row.ResourceType), assignee)
	return nil
}

// List returns the active assignments for one resource.
func (s *AssignmentService) List(ctx context.Context, resourceID, resourceType string) ([]models.PermissionAssignment, error) {
	ctx = ensureContext(ctx)

	t, err := permissions.ParseResourceType(strings.TrimSpace(resourceType))
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	var rows []models.PermissionAssignment
	err = s.db.WithContext(ctx).
		Where("resource_id = ? AND resource_type = ?", strings.TrimSpace(resourceID), string(t)).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("assignment service: list assignments: %w", err)
	}
	return rows, nil
}

// PruneExpired deletes assignment rows whose expiry has passed. Expired rows
// are already invisible to the engine; this reclaims the storage.
func (s *AssignmentService) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.PermissionAssignment{})
	if result.Error != nil {
		return 0, fmt.Errorf("assignment service: prune expired assignments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ensureAssigneeExists rejects grants that point at records that are not
// there; a dangling grant would silently never match.
func (s *AssignmentService) ensureAssigneeExists(ctx context.Context, assignee permissions.Assignee) error {
	var (
		count int64
		err   error
	)
	switch assignee.Group {
	case permissions.GroupRole:
		err = s.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", assignee.ID).Count(&count).Error
	case permissions.GroupSpace:
		err = s.db.WithContext(ctx).Model(&models.Space{}).Where("id = ?", assignee.ID).Count(&count).Error
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("assignment service: resolve assignee: %w", err)
	}
	if count == 0 {
		return apperrors.NewBadRequest(fmt.Sprintf("%s %q does not exist", assignee.Group, assignee.ID))
	}
	return nil
}

func (s *AssignmentService) invalidate(ctx context.Context, resourceID string, t permissions.ResourceType, assignee permissions.Assignee) {
	if s.cache == nil {
		return
	}
	// only direct user grants map to a single cached actor; anything wider
	// invalidates the anonymous entry and lets the TTL age out the rest
	if assignee.Group == permissions.GroupUser {
		_ = s.cache.Invalidate(ctx, resourceID, t, assignee.ID)
		return
	}
	_ = s.cache.Invalidate(ctx, resourceID, t)
}
