package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/models"
	"github.com/guildhall-io/guildhall/internal/permissions"
	apperrors "github.com/guildhall-io/guildhall/pkg/errors"
)

var (
	// ErrSpaceNotFound indicates the requested space does not exist.
	ErrSpaceNotFound = apperrors.New("SPACE_NOT_FOUND", "Space not found", http.StatusNotFound)
	// ErrSpaceMemberNotFound indicates the user is not a member of the space.
	ErrSpaceMemberNotFound = apperrors.New("SPACE_MEMBER_NOT_FOUND", "User is not a member of the space", http.StatusNotFound)
	// ErrLastAdmin blocks removing or demoting a space's only admin.
	ErrLastAdmin = apperrors.New("LAST_ADMIN", "A space must retain at least one admin", http.StatusConflict)
)

// CreateSpaceInput captures new space metadata. The creating user becomes
// the first admin.
type CreateSpaceInput struct {
	Name      string
	Domain    string
	Tier      string
	CreatedBy string
}

// SpaceService manages spaces and their memberships.
type SpaceService struct {
	db *gorm.DB
}

// NewSpaceService constructs a SpaceService instance.
func NewSpaceService(db *gorm.DB) (*SpaceService, error) {
	if db == nil {
		return nil, errors.New("space service: db is required")
	}
	return &SpaceService{db: db}, nil
}

// Create provisions a new space with its creating admin.
func (s *SpaceService) Create(ctx context.Context, input CreateSpaceInput) (*models.Space, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	domain := strings.ToLower(strings.TrimSpace(input.Domain))
	createdBy := strings.TrimSpace(input.CreatedBy)
	if name == "" {
		return nil, apperrors.NewBadRequest("space name is required")
	}
	if domain == "" {
		return nil, apperrors.NewBadRequest("space domain is required")
	}
	if createdBy == "" {
		return nil, apperrors.NewBadRequest("creating user is required")
	}

	tier := strings.TrimSpace(input.Tier)
	if tier == "" {
		tier = models.TierFree
	}
	if !validTier(tier) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown tier %q", tier))
	}

	space := &models.Space{Name: name, Domain: domain, Tier: tier}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(space).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewBadRequest("space domain already exists")
			}
			return fmt.Errorf("space service: create space: %w", err)
		}
		admin := &models.SpaceMember{SpaceID: space.ID, UserID: createdBy, IsAdmin: true}
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("space service: create founding admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return space, nil
}

// Get loads one space by id.
func (s *SpaceService) Get(ctx context.Context, id string) (*models.Space, error) {
	ctx = ensureContext(ctx)
	return s.load(ctx, id)
}

// SetTier moves the space to a new subscription tier. Capability changes
// surface on the next permission computation; nothing is recomputed eagerly.
func (s *SpaceService) SetTier(ctx context.Context, id, tier string) (*models.Space, error) {
	ctx = ensureContext(ctx)

	tier = strings.TrimSpace(tier)
	if !validTier(tier) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown tier %q", tier))
	}

	space, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if space.Tier == tier {
		return space, nil
	}

	if err := s.db.WithContext(ctx).Model(space).Update("tier", tier).Error; err != nil {
		return nil, fmt.Errorf("space service: update tier: %w", err)
	}
	return space, nil
}

// WorkflowLimit reports how many proposal workflows the space's tier allows.
func (s *SpaceService) WorkflowLimit(ctx context.Context, id string) (int, error) {
	space, err := s.load(ensureContext(ctx), id)
	if err != nil {
		return 0, err
	}
	return permissions.WorkflowLimit(space.Tier), nil
}

// AddMember joins a user to the space.
func (s *SpaceService) AddMember(ctx context.Context, spaceID, userID string, admin bool) (*models.SpaceMember, error) {
	ctx = ensureContext(ctx)

	if _, err := s.load(ctx, spaceID); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	member := &models.SpaceMember{SpaceID: strings.TrimSpace(spaceID), UserID: userID, IsAdmin: admin}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("user is already a member")
		}
		return nil, fmt.Errorf("space service: add member: %w", err)
	}
	return member, nil
}

// RemoveMember departs a user from the space, dropping their role
// memberships with them.
func (s *SpaceService) RemoveMember(ctx context.Context, spaceID, userID string) error {
	ctx = ensureContext(ctx)

	member, err := s.member(ctx, spaceID, userID)
	if err != nil {
		return err
	}
	if member.IsAdmin {
		if err := s.ensureNotLastAdmin(ctx, spaceID, member.ID); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.RoleMembership{}, "space_member_id = ?", member.ID).Error; err != nil {
			return fmt.Errorf("space service: delete role memberships: %w", err)
		}
		if err := tx.Delete(&models.SpaceMember{}, "id = ?", member.ID).Error; err != nil {
			return fmt.Errorf("space service: delete member: %w", err)
		}
		return nil
	})
}

// SetAdmin toggles a member's admin flag.
func (s *SpaceService) SetAdmin(ctx context.Context, spaceID, userID string, admin bool) (*models.SpaceMember, error) {
	ctx = ensureContext(ctx)

	member, err := s.member(ctx, spaceID, userID)
	if err != nil {
		return nil, err
	}
	if member.IsAdmin == admin {
		return member, nil
	}
	if !admin {
		if err := s.ensureNotLastAdmin(ctx, spaceID, member.ID); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Model(member).Update("is_admin", admin).Error; err != nil {
		return nil, fmt.Errorf("space service: update admin flag: %w", err)
	}
	return member, nil
}

// ListMembers returns the space's members.
func (s *SpaceService) ListMembers(ctx context.Context, spaceID string) ([]models.SpaceMember, error) {
	ctx = ensureContext(ctx)

	var members []models.SpaceMember
	err := s.db.WithContext(ctx).
		Where("space_id = ?", strings.TrimSpace(spaceID)).
		Order("created_at").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("space service: list members: %w", err)
	}
	return members, nil
}

func (s *SpaceService) ensureNotLastAdmin(ctx context.Context, spaceID, exceptMemberID string) error {
	var admins int64
	err := s.db.WithContext(ctx).Model(&models.SpaceMember{}).
		Where("space_id = ? AND is_admin = ? AND id <> ?", strings.TrimSpace(spaceID), true, exceptMemberID).
		Count(&admins).Error
	if err != nil {
		return fmt.Errorf("space service: count admins: %w", err)
	}
	if admins == 0 {
		return ErrLastAdmin
	}
	return nil
}

func (s *SpaceService) member(ctx context.Context, spaceID, userID string) (*models.SpaceMember, error) {
	var member models.SpaceMember
	err := s.db.WithContext(ctx).
		Where("space_id = ? AND user_id = ?", strings.TrimSpace(spaceID), strings.TrimSpace(userID)).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSpaceMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("space service: load member: %w", err)
	}
	return &member, nil
}

func (s *SpaceService) load(ctx context.Context, id string) (*models.Space, error) {
	var space models.Space
	err := s.db.WithContext(ctx).First(&space, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSpaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("space service: load space: %w", err)
	}
	return &space, nil
}

func validTier(tier string) bool {
	switch tier {
	case models.TierReadonly, models.TierFree, models.TierBronze,
		models.TierSilver, models.TierGold, models.TierGrant:
		return true
	}
	return false
}
