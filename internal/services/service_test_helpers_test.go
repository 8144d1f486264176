package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/models"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Space{},
		&models.SpaceMember{},
		&models.Role{},
		&models.RoleMembership{},
		&models.PermissionAssignment{},
		&models.Page{},
		&models.Reward{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func seedSpace(t *testing.T, db *gorm.DB, tier string) *models.Space {
	t.Helper()

	space := &models.Space{Name: "Acme", Domain: fmt.Sprintf("acme-%s", strings.ToLower(t.Name())), Tier: tier}
	require.NoError(t, db.Create(space).Error)
	return space
}

func seedMember(t *testing.T, db *gorm.DB, spaceID, userID string, admin bool) *models.SpaceMember {
	t.Helper()

	member := &models.SpaceMember{SpaceID: spaceID, UserID: userID, IsAdmin: admin}
	require.NoError(t, db.Create(member).Error)
	return member
}
