package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/models"
	apperrors "github.com/guildhall-io/guildhall/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrRoleMemberNotFound indicates the user does not hold the role.
	ErrRoleMemberNotFound = apperrors.New("ROLE_MEMBER_NOT_FOUND", "User does not hold the role", http.StatusNotFound)
	// ErrMemberNotInSpace signals a role grant to someone outside the space.
	ErrMemberNotInSpace = apperrors.New("MEMBER_NOT_IN_SPACE", "User is not a member of the space", http.StatusBadRequest)
)

// CreateRoleInput captures new role metadata.
type CreateRoleInput struct {
	SpaceID string
	Name    string
}

// UpdateRoleInput describes mutable role fields.
type UpdateRoleInput struct {
	Name *string
}

// RoleService manages roles and role memberships within a space.
//
// Roles carrying a Source marker are owned by an external sync (for example
// a chat-platform role import): the resolver honours them for permission
// computation, but their metadata and membership are read-only here. The
// sync pipeline is the only writer for such roles.
type RoleService struct {
	db *gorm.DB
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(db *gorm.DB) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{db: db}, nil
}

// Create registers a new internally-managed role.
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	spaceID := strings.TrimSpace(input.SpaceID)
	name := strings.TrimSpace(input.Name)
	if spaceID == "" {
		return nil, apperrors.NewBadRequest("space id is required")
	}
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	role := &models.Role{SpaceID: spaceID, Name: name}
	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}
	return role, nil
}

// Update modifies role metadata. Externally-sourced roles are refused.
func (s *RoleService) Update(ctx context.Context, id string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsExternal() {
		return nil, apperrors.ErrRoleReadOnly
	}

	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" && name != role.Name {
			if err := s.db.WithContext(ctx).Model(role).Update("name", name).Error; err != nil {
				if isUniqueConstraintError(err) {
					return nil, apperrors.NewBadRequest("role name already exists")
				}
				return nil, fmt.Errorf("role service: update role: %w", err)
			}
		}
	}
	return role, nil
}

// Delete removes a role together with its memberships and the assignment
// rows that reference it. Externally-sourced roles are refused.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	role, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if role.IsExternal() {
		return apperrors.ErrRoleReadOnly
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.RoleMembership{}, "role_id = ?", role.ID).Error; err != nil {
			return fmt.Errorf("role service: delete role memberships: %w", err)
		}
		if err := tx.Delete(&models.PermissionAssignment{}, "role_id = ?", role.ID).Error; err != nil {
			return fmt.Errorf("role service: delete role assignments: %w", err)
		}
		if err := tx.Delete(&models.Role{}, "id = ?", role.ID).Error; err != nil {
			return fmt.Errorf("role service: delete role: %w", err)
		}
		return nil
	})
}

// ListBySpace returns the space's roles, memberships included.
func (s *RoleService) ListBySpace(ctx context.Context, spaceID string) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	err := s.db.WithContext(ctx).
		Preload("Memberships").
		Where("space_id = ?", strings.TrimSpace(spaceID)).
		Order("name").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// AddMember grants the role to a space member. Takes effect on the next
// permission computation.
func (s *RoleService) AddMember(ctx context.Context, roleID, userID string) (*models.RoleMembership, error) {
	ctx = ensureContext(ctx)

	role, err := s.load(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsExternal() {
		return nil, apperrors.ErrRoleReadOnly
	}

	var member models.SpaceMember
	err = s.db.WithContext(ctx).
		Where("space_id = ? AND user_id = ?", role.SpaceID, strings.TrimSpace(userID)).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotInSpace
	}
	if err != nil {
		return nil, fmt.Errorf("role service: load space member: %w", err)
	}

	membership := &models.RoleMembership{SpaceMemberID: member.ID, RoleID: role.ID}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("user already holds the role")
		}
		return nil, fmt.Errorf("role service: add role member: %w", err)
	}
	return membership, nil
}

// RemoveMember revokes the role from a space member.
func (s *RoleService) RemoveMember(ctx context.Context, roleID, userID string) error {
	ctx = ensureContext(ctx)

	role, err := s.load(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsExternal() {
		return apperrors.ErrRoleReadOnly
	}

	result := s.db.WithContext(ctx).
		Where("role_id = ? AND space_member_id IN (?)", role.ID,
			s.db.Model(&models.SpaceMember{}).Select("id").
				Where("space_id = ? AND user_id = ?", role.SpaceID, strings.TrimSpace(userID)),
		).
		Delete(&models.RoleMembership{})
	if result.Error != nil {
		return fmt.Errorf("role service: remove role member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRoleMemberNotFound
	}
	return nil
}

// PruneOrphanedMemberships deletes role memberships whose member row is
// gone. The resolver already ignores them; this reclaims the storage.
func (s *RoleService) PruneOrphanedMemberships(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("space_member_id NOT IN (?)", s.db.Model(&models.SpaceMember{}).Select("id")).
		Delete(&models.RoleMembership{})
	if result.Error != nil {
		return 0, fmt.Errorf("role service: prune orphaned memberships: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *RoleService) load(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).First(&role, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &role, nil
}
