package models

import "time"

// Assignee group discriminators for PermissionAssignment rows.
const (
	AssigneeGroupUser   = "user"
	AssigneeGroupRole   = "role"
	AssigneeGroupSpace  = "space"
	AssigneeGroupPublic = "public"
)

// PermissionAssignment grants a capability level on one resource to one
// assignee. Exactly one of UserID / RoleID / SpaceID is set, matching
// GroupType; public assignments carry none of them. Rows are written by the
// assignment APIs and only read by the computation engine.
type PermissionAssignment struct {
	BaseModel

	ResourceID   string `gorm:"type:uuid;not null;index:idx_assignment_resource,priority:1" json:"resource_id"`
	ResourceType string `gorm:"type:varchar(32);not null;index:idx_assignment_resource,priority:2" json:"resource_type"`
	Level        string `gorm:"type:varchar(32);not null" json:"level"`

	GroupType string  `gorm:"type:varchar(16);not null" json:"group_type"`
	UserID    *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	RoleID    *string `gorm:"type:uuid;index" json:"role_id,omitempty"`
	SpaceID   *string `gorm:"type:uuid;index" json:"space_id,omitempty"`

	GrantedByID *string    `gorm:"type:uuid" json:"granted_by_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// TableName overrides the default table name for GORM.
func (PermissionAssignment) TableName() string {
	return "permission_assignments"
}
