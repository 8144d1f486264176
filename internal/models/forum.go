package models

// PostCategory groups forum posts and carries its own permission levels.
type PostCategory struct {
	BaseModel

	SpaceID   string `gorm:"type:uuid;not null;index" json:"space_id"`
	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`
	Name      string `gorm:"not null" json:"name"`
}

// Post is a forum discussion entry within a category.
type Post struct {
	BaseModel

	SpaceID    string `gorm:"type:uuid;not null;index" json:"space_id"`
	CategoryID string `gorm:"type:uuid;not null;index" json:"category_id"`
	CreatedBy  string `gorm:"type:uuid;not null;index" json:"created_by"`
	Title      string `json:"title"`
	IsDraft    bool   `gorm:"default:false" json:"is_draft"`
	Locked     bool   `gorm:"default:false" json:"locked"`
}
