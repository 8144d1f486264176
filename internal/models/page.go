package models

// Page is a document within a space. Content storage and versioning live in
// a separate subsystem; this record carries only what permission computation
// and listing need.
type Page struct {
	BaseModel

	SpaceID   string `gorm:"type:uuid;not null;index" json:"space_id"`
	CreatedBy string `gorm:"type:uuid;not null;index" json:"created_by"`
	Title     string `json:"title"`

	// ConvertedProposalID locks the page once it has been turned into a
	// proposal: editing the frozen source would desync the two records.
	ConvertedProposalID *string `gorm:"type:uuid" json:"converted_proposal_id,omitempty"`
}
