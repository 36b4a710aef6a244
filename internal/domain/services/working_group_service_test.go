package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/domain/models"
)

func TestInitializeDefaultsIsIdempotent(t *testing.T) {
	e := newEnv(t)
	svc := NewWorkingGroupService(e.db, e.cfg, e.perms)
	admin := e.user("admin")
	c := e.community("c1")
	e.communityMember(c.ID, admin.ID, models.CommunityRoleAdmin)
	e.group(c.ID, models.WorkingGroupCatering)

	groups, err := svc.InitializeDefaults(admin.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, groups, len(defaultGroups))

	groups, err = svc.InitializeDefaults(admin.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, groups, len(defaultGroups))

	types := map[string]int{}
	for _, g := range groups {
		types[g.Type]++
	}
	assert.Equal(t, 1, types[models.WorkingGroupFrontDoorTeam])
	assert.Equal(t, 1, types[models.WorkingGroupCatering])

	_, err = svc.InitializeDefaults(e.user("nobody").ID, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWorkingGroupMembersAndPermissions(t *testing.T) {
	e := newEnv(t)
	svc := NewWorkingGroupService(e.db, e.cfg, e.perms)
	admin := e.user("admin")
	staff := e.user("staff")
	c := e.community("c1")
	other := e.community("c2")
	e.communityMember(c.ID, admin.ID, models.CommunityRoleAdmin)
	b := e.building(c.ID, "b1")
	foreign := e.building(other.ID, "x")

	_, err := svc.CreateGroup(admin.ID, c.ID, &WorkingGroupRequest{Name: "Desk", Type: "RECEPTION"})
	assert.ErrorIs(t, err, ErrInvalidParam)

	g, err := svc.CreateGroup(admin.ID, c.ID, &WorkingGroupRequest{Name: "Desk", Type: models.WorkingGroupFrontDoorTeam})
	require.NoError(t, err)
	assert.True(t, g.IsActive)

	_, err = svc.AddMember(admin.ID, g.ID, &MemberRequest{UserID: staff.ID, Role: "BOSS"})
	assert.ErrorIs(t, err, ErrInvalidParam)
	m, err := svc.AddMember(admin.ID, g.ID, &MemberRequest{UserID: staff.ID, Role: models.WorkingGroupRoleLeader})
	require.NoError(t, err)
	assert.True(t, e.perms.IsWorkingGroupLeader(staff.ID, g.ID))

	_, err = svc.AddPermission(admin.ID, g.ID, &GroupPermissionRequest{Permission: models.PermissionView, Scope: models.ScopeSpecificBuilding})
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = svc.AddPermission(admin.ID, g.ID, &GroupPermissionRequest{Permission: models.PermissionView, Scope: models.ScopeSpecificBuilding, ScopeID: &foreign.ID})
	assert.ErrorIs(t, err, ErrBuildingNotFound)

	perm, err := svc.AddPermission(admin.ID, g.ID, &GroupPermissionRequest{Permission: models.PermissionView, Scope: models.ScopeSpecificBuilding, ScopeID: &b.ID})
	require.NoError(t, err)
	assert.True(t, e.perms.IsFrontDeskForBuilding(staff.ID, b.ID))

	// 全局范围忽略 scope_id
	all, err := svc.AddPermission(admin.ID, g.ID, &GroupPermissionRequest{Permission: models.PermissionView, Scope: models.ScopeAllBuildings, ScopeID: &b.ID})
	require.NoError(t, err)
	assert.Nil(t, all.ScopeID)

	got, err := svc.GetGroup(admin.ID, g.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
	assert.Len(t, got.Permissions, 2)

	require.NoError(t, svc.RemovePermission(admin.ID, g.ID, perm.ID))
	assert.ErrorIs(t, svc.RemovePermission(admin.ID, g.ID, perm.ID), ErrInvalidParam)
	require.NoError(t, svc.RemoveMember(admin.ID, g.ID, m.ID))

	inactive := false
	updated, err := svc.UpdateGroup(admin.ID, g.ID, &WorkingGroupRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Desk", updated.Name)

	require.NoError(t, svc.DeleteGroup(admin.ID, g.ID))
	_, err = svc.GetGroup(admin.ID, g.ID)
	assert.ErrorIs(t, err, ErrWorkingGroupNotFound)
}
