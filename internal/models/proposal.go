package models

import "time"

// Proposal statuses.
const (
	ProposalStatusDraft     = "draft"
	ProposalStatusPublished = "published"
)

// Proposal is a governance item that moves through ordered evaluation steps.
type Proposal struct {
	BaseModel

	SpaceID   string `gorm:"type:uuid;not null;index" json:"space_id"`
	CreatedBy string `gorm:"type:uuid;not null;index" json:"created_by"`
	Title     string `json:"title"`
	Status    string `gorm:"type:varchar(16);not null;default:draft" json:"status"`

	// Archived is terminal. It blocks evaluation-advancing operations for
	// every actor, admins included.
	Archived        bool `gorm:"default:false;index" json:"archived"`
	ArchivedByAdmin bool `gorm:"default:false" json:"archived_by_admin"`

	CurrentEvaluationID *string `gorm:"type:uuid" json:"current_evaluation_id,omitempty"`

	Evaluations []ProposalEvaluation `gorm:"foreignKey:ProposalID" json:"evaluations,omitempty"`
}

// ProposalEvaluation is one step of a proposal's review workflow.
type ProposalEvaluation struct {
	BaseModel

	ProposalID string `gorm:"type:uuid;not null;index" json:"proposal_id"`
	SpaceID    string `gorm:"type:uuid;not null;index" json:"space_id"`
	Title      string `json:"title"`
	Index      int    `gorm:"not null" json:"index"`

	// Result is nil while the step is undecided; "pass" or "fail" once a
	// reviewer records an outcome.
	Result *string `gorm:"type:varchar(8)" json:"result,omitempty"`

	Appealable            bool       `gorm:"default:false" json:"appealable"`
	AppealedAt            *time.Time `json:"appealed_at,omitempty"`
	AppealRequiredReviews int        `gorm:"default:1" json:"appeal_required_reviews"`

	Reviewers []EvaluationReviewer `gorm:"foreignKey:EvaluationID" json:"reviewers,omitempty"`
	Reviews   []EvaluationReview   `gorm:"foreignKey:EvaluationID" json:"reviews,omitempty"`
}

// EvaluationReviewer registers a user or role as reviewer (or appeal
// reviewer) for one evaluation step.
type EvaluationReviewer struct {
	BaseModel

	EvaluationID string  `gorm:"type:uuid;not null;index" json:"evaluation_id"`
	GroupType    string  `gorm:"type:varchar(16);not null" json:"group_type"`
	UserID       *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	RoleID       *string `gorm:"type:uuid;index" json:"role_id,omitempty"`
	ForAppeal    bool    `gorm:"default:false" json:"for_appeal"`
}

// EvaluationReview records one reviewer's submitted outcome.
type EvaluationReview struct {
	BaseModel

	EvaluationID string `gorm:"type:uuid;not null;index" json:"evaluation_id"`
	ReviewerID   string `gorm:"type:uuid;not null" json:"reviewer_id"`
	ForAppeal    bool   `gorm:"default:false;index" json:"for_appeal"`
	Result       string `gorm:"type:varchar(8);not null" json:"result"`
}
