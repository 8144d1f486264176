package database

import (
	"testing"

	"github.com/guildhall-io/guildhall/internal/models"
	"gorm.io/gorm"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	if err := AutoMigrateAndSeed(db); err != nil {
		t.Fatalf("auto migrate and seed failed: %v", err)
	}

	var spaceCount int64
	if err := db.Model(&models.Space{}).Count(&spaceCount).Error; err != nil {
		t.Fatalf("count spaces: %v", err)
	}
	if spaceCount != 1 {
		t.Fatalf("expected the default space to be seeded, got %d", spaceCount)
	}

	// seeding is idempotent and never duplicates the default space
	if err := SeedData(db); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if err := db.Model(&models.Space{}).Count(&spaceCount).Error; err != nil {
		t.Fatalf("recount spaces: %v", err)
	}
	if spaceCount != 1 {
		t.Fatalf("expected seeding to be idempotent, got %d spaces", spaceCount)
	}
}

func TestAutoMigrateCreatesPermissionTables(t *testing.T) {
	db := openTestDB(t)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	migrator := db.Migrator()
	tables := []interface{}{
		&models.PermissionAssignment{},
		&models.RoleMembership{},
		&models.EvaluationReviewer{},
		&models.EvaluationReview{},
	}
	for _, table := range tables {
		if !migrator.HasTable(table) {
			t.Fatalf("expected table for %T to exist", table)
		}
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
