package models

// Role is a named group of space members used as a permission assignee.
type Role struct {
	BaseModel

	SpaceID string `gorm:"type:uuid;not null;index" json:"space_id"`
	Name    string `gorm:"not null" json:"name"`

	// Source is set for roles imported from an external identity system
	// (e.g. a chat-platform role sync). Such roles are honoured for
	// permission resolution but their metadata is read-only here.
	Source string `gorm:"type:varchar(32)" json:"source,omitempty"`

	Memberships []RoleMembership `gorm:"foreignKey:RoleID" json:"memberships,omitempty"`
}

// IsExternal reports whether the role is owned by an external source system.
func (r *Role) IsExternal() bool {
	return r.Source != ""
}
