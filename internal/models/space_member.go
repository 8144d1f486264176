package models

// SpaceMember ties a user to a space. The admin flag is absolute: an admin of
// the space owning a resource receives every operation the resource type
// supports, short of data-integrity locks.
type SpaceMember struct {
	BaseModel

	SpaceID string `gorm:"type:uuid;not null;uniqueIndex:idx_space_user,priority:1" json:"space_id"`
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_space_user,priority:2" json:"user_id"`
	IsAdmin bool   `gorm:"default:false" json:"is_admin"`

	RoleMemberships []RoleMembership `gorm:"foreignKey:SpaceMemberID" json:"role_memberships,omitempty"`
}

// RoleMembership joins a space member to a role. Revoking a row takes effect
// on the next permission computation; there is no cache to invalidate.
type RoleMembership struct {
	BaseModel

	SpaceMemberID string `gorm:"type:uuid;not null;uniqueIndex:idx_member_role,priority:1" json:"space_member_id"`
	RoleID        string `gorm:"type:uuid;not null;uniqueIndex:idx_member_role,priority:2;index" json:"role_id"`
}
