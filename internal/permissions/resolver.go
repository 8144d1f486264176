package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/models"
)

// RoleMembers maps role id to the set of user ids currently holding the
// role with an active space membership.
type RoleMembers map[string]map[string]struct{}

// Union flattens the per-role sets into one user id set.
func (m RoleMembers) Union() map[string]struct{} {
	out := make(map[string]struct{})
	for _, users := range m {
		for id := range users {
			out[id] = struct{}{}
		}
	}
	return out
}

// Contains reports whether the user holds the given role.
func (m RoleMembers) Contains(roleID, userID string) bool {
	_, ok := m[roleID][userID]
	return ok
}

// ContainsAny reports whether the user holds any of the given roles.
func (m RoleMembers) ContainsAny(roleIDs []string, userID string) bool {
	for _, roleID := range roleIDs {
		if m.Contains(roleID, userID) {
			return true
		}
	}
	return false
}

// Resolver expands role assignees into their current member user ids.
//
// Role-based delegation for reviewer-style resources (rewards, proposals and
// their evaluations) is a paid feature: on tiers lacking the capability the
// resolver returns empty sets for those resource types. The rule lives here,
// not in the UI or in individual policies, so direct API calls cannot bypass
// it.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a role membership resolver backed by the database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("role resolver: db is required")
	}
	return &Resolver{db: db}, nil
}

// roleExpansionTierGated marks the resource types whose role expansion is
// reserved for paying tiers.
func roleExpansionTierGated(t ResourceType) bool {
	switch t {
	case ResourceReward, ResourceProposal, ResourceProposalEvaluation:
		return true
	}
	return false
}

// Expand returns, per role, the user ids holding the role among active
// members of the space. Deleted roles and departed members simply do not
// appear; they are never an error.
func (r *Resolver) Expand(ctx context.Context, spaceID, spaceTier string, t ResourceType, roleIDs []string) (RoleMembers, error) {
	members := make(RoleMembers, len(roleIDs))
	if len(roleIDs) == 0 {
		return members, nil
	}
	if roleExpansionTierGated(t) && !TierAllows(spaceTier, CapRoleReviewerExpansion) {
		return members, nil
	}

	type membershipRow struct {
		RoleID string
		UserID string
	}
	var rows []membershipRow
	err := r.db.WithContext(ctx).
		Model(&models.RoleMembership{}).
		Select("role_memberships.role_id, space_members.user_id").
		Joins("JOIN space_members ON space_members.id = role_memberships.space_member_id").
		Joins("JOIN roles ON roles.id = role_memberships.role_id").
		Where("roles.space_id = ? AND space_members.space_id = ?", spaceID, spaceID).
		Where("role_memberships.role_id IN ?", roleIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("role resolver: expand roles: %w", err)
	}

	for _, row := range rows {
		users, ok := members[row.RoleID]
		if !ok {
			users = make(map[string]struct{})
			members[row.RoleID] = users
		}
		users[row.UserID] = struct{}{}
	}
	return members, nil
}
