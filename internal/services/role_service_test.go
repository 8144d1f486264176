package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/guildhall-io/guildhall/internal/models"
	apperrors "github.com/guildhall-io/guildhall/pkg/errors"
)

func TestRoleServiceMembershipLifecycle(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	ctx := context.Background()
	space := seedSpace(t, db, models.TierBronze)
	member := seedMember(t, db, space.ID, uuid.NewString(), false)

	role, err := svc.Create(ctx, CreateRoleInput{SpaceID: space.ID, Name: "Reviewers"})
	require.NoError(t, err)

	membership, err := svc.AddMember(ctx, role.ID, member.UserID)
	require.NoError(t, err)
	require.Equal(t, member.ID, membership.SpaceMemberID)

	// joining twice is a conflict
	_, err = svc.AddMember(ctx, role.ID, member.UserID)
	require.Error(t, err)

	// non-members cannot hold roles
	_, err = svc.AddMember(ctx, role.ID, uuid.NewString())
	require.ErrorIs(t, err, ErrMemberNotInSpace)

	require.NoError(t, svc.RemoveMember(ctx, role.ID, member.UserID))
	require.ErrorIs(t, svc.RemoveMember(ctx, role.ID, member.UserID), ErrRoleMemberNotFound)
}

func TestRoleServiceRefusesExternalRoleMutation(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	ctx := context.Background()
	space := seedSpace(t, db, models.TierBronze)
	member := seedMember(t, db, space.ID, uuid.NewString(), false)

	synced := &models.Role{SpaceID: space.ID, Name: "Discord Mods", Source: "discord"}
	require.NoError(t, db.Create(synced).Error)

	newName := "Renamed"
	_, err = svc.Update(ctx, synced.ID, UpdateRoleInput{Name: &newName})
	require.ErrorIs(t, err, apperrors.ErrRoleReadOnly)

	require.ErrorIs(t, svc.Delete(ctx, synced.ID), apperrors.ErrRoleReadOnly)

	_, err = svc.AddMember(ctx, synced.ID, member.UserID)
	require.ErrorIs(t, err, apperrors.ErrRoleReadOnly)

	require.ErrorIs(t, svc.RemoveMember(ctx, synced.ID, member.UserID), apperrors.ErrRoleReadOnly)

	// still readable alongside internal roles
	roles, err := svc.ListBySpace(ctx, space.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.True(t, roles[0].IsExternal())
}

func TestRoleServiceDeleteCascades(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	ctx := context.Background()
	space := seedSpace(t, db, models.TierBronze)
	member := seedMember(t, db, space.ID, uuid.NewString(), false)

	role, err := svc.Create(ctx, CreateRoleInput{SpaceID: space.ID, Name: "Builders"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, role.ID, member.UserID)
	require.NoError(t, err)

	assignment := &models.PermissionAssignment{
		ResourceID: uuid.NewString(), ResourceType: "page", Level: "viewer",
		GroupType: models.AssigneeGroupRole, RoleID: &role.ID,
	}
	require.NoError(t, db.Create(assignment).Error)

	require.NoError(t, svc.Delete(ctx, role.ID))

	var memberships, assignments int64
	require.NoError(t, db.Model(&models.RoleMembership{}).Where("role_id = ?", role.ID).Count(&memberships).Error)
	require.NoError(t, db.Model(&models.PermissionAssignment{}).Where("role_id = ?", role.ID).Count(&assignments).Error)
	require.Zero(t, memberships)
	require.Zero(t, assignments)
}

func TestRoleServicePruneOrphanedMemberships(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	ctx := context.Background()
	space := seedSpace(t, db, models.TierBronze)
	member := seedMember(t, db, space.ID, uuid.NewString(), false)

	role, err := svc.Create(ctx, CreateRoleInput{SpaceID: space.ID, Name: "Ghosts"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, role.ID, member.UserID)
	require.NoError(t, err)

	// member departs without cleanup of the membership row
	require.NoError(t, db.Delete(&models.SpaceMember{}, "id = ?", member.ID).Error)

	pruned, err := svc.PruneOrphanedMemberships(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}
