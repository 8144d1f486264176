package database

import (
	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Space{},
		&models.SpaceMember{},
		&models.Role{},
		&models.RoleMembership{},
		&models.PermissionAssignment{},
		&models.Page{},
		&models.PostCategory{},
		&models.Post{},
		&models.Reward{},
		&models.Proposal{},
		&models.ProposalEvaluation{},
		&models.EvaluationReviewer{},
		&models.EvaluationReview{},
		&models.CacheEntry{},
	)
}

// SeedData ensures a default space exists for fresh self-hosted installs.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Space{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	space := models.Space{
		BaseModel: models.BaseModel{ID: "default"},
		Name:      "Guildhall",
		Domain:    "guildhall",
		Tier:      models.TierFree,
	}
	return db.Where(models.Space{BaseModel: models.BaseModel{ID: space.ID}}).
		Attrs(space).
		FirstOrCreate(&models.Space{}).Error
}
