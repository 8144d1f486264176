package permissions

import (
	"fmt"

	"github.com/guildhall-io/guildhall/internal/models"
)

// AssigneeGroup discriminates the Assignee tagged union.
type AssigneeGroup string

const (
	GroupUser   AssigneeGroup = "user"
	GroupRole   AssigneeGroup = "role"
	GroupSpace  AssigneeGroup = "space"
	GroupPublic AssigneeGroup = "public"
)

// Assignee is the target of a permission assignment: a single user, every
// holder of a role, every member of the space, or the anonymous public.
// Exactly one variant is populated; ID is empty only for GroupPublic.
type Assignee struct {
	Group AssigneeGroup `json:"group"`
	ID    string        `json:"id,omitempty"`
}

// UserAssignee targets one user directly.
func UserAssignee(id string) Assignee { return Assignee{Group: GroupUser, ID: id} }

// RoleAssignee targets every current holder of a role.
func RoleAssignee(id string) Assignee { return Assignee{Group: GroupRole, ID: id} }

// SpaceAssignee targets every current member of the space.
func SpaceAssignee(id string) Assignee { return Assignee{Group: GroupSpace, ID: id} }

// PublicAssignee targets unauthenticated or non-member visitors.
func PublicAssignee() Assignee { return Assignee{Group: GroupPublic} }

// Validate checks the tagged-union invariant.
func (a Assignee) Validate() error {
	switch a.Group {
	case GroupUser, GroupRole, GroupSpace:
		if a.ID == "" {
			return fmt.Errorf("%w: %s assignee requires an id", ErrInvalidAssignee, a.Group)
		}
	case GroupPublic:
		if a.ID != "" {
			return fmt.Errorf("%w: public assignee carries no id", ErrInvalidAssignee)
		}
	default:
		return fmt.Errorf("%w: unknown group %q", ErrInvalidAssignee, a.Group)
	}
	return nil
}

// assigneeOf reconstructs the tagged union from a stored assignment row.
func assigneeOf(row models.PermissionAssignment) Assignee {
	switch row.GroupType {
	case models.AssigneeGroupUser:
		if row.UserID != nil {
			return UserAssignee(*row.UserID)
		}
	case models.AssigneeGroupRole:
		if row.RoleID != nil {
			return RoleAssignee(*row.RoleID)
		}
	case models.AssigneeGroupSpace:
		if row.SpaceID != nil {
			return SpaceAssignee(*row.SpaceID)
		}
	case models.AssigneeGroupPublic:
		return PublicAssignee()
	}
	return Assignee{}
}
