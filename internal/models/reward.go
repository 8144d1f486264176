package models

// Reward lifecycle statuses.
const (
	RewardStatusSuggestion = "suggestion"
	RewardStatusOpen       = "open"
	RewardStatusInProgress = "in_progress"
	RewardStatusComplete   = "complete"
	RewardStatusPaid       = "paid"
)

// Reward is a paid task. Payment execution is external; the engine only
// consumes status and lock state.
type Reward struct {
	BaseModel

	SpaceID   string `gorm:"type:uuid;not null;index" json:"space_id"`
	CreatedBy string `gorm:"type:uuid;not null;index" json:"created_by"`
	Title     string `json:"title"`

	Status string `gorm:"type:varchar(16);not null;default:open;index" json:"status"`

	// SubmissionsLocked stops new work without closing the reward, e.g.
	// while the reviewer works through a backlog.
	SubmissionsLocked bool `gorm:"default:false" json:"submissions_locked"`

	Amount float64 `json:"amount"`
	Token  string  `gorm:"type:varchar(16)" json:"token"`
}
