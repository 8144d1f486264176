package models

import "gorm.io/datatypes"

// Subscription tiers a space can hold. Tiers gate entire capabilities
// independent of per-resource assignments; see internal/permissions/tiers.go.
const (
	TierReadonly = "readonly"
	TierFree     = "free"
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	// TierGrant is issued to grant-funded communities and carries the same
	// capabilities as gold.
	TierGrant = "grant"
)

// Space is an isolated customer workspace (the tenant).
type Space struct {
	BaseModel

	Name     string         `gorm:"not null" json:"name"`
	Domain   string         `gorm:"uniqueIndex" json:"domain"`
	Tier     string         `gorm:"type:varchar(16);not null;default:free" json:"tier"`
	Settings datatypes.JSON `json:"settings"`

	Members []SpaceMember `gorm:"foreignKey:SpaceID" json:"members,omitempty"`
	Roles   []Role        `gorm:"foreignKey:SpaceID" json:"roles,omitempty"`
}
