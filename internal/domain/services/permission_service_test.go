package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"estatehub-http-service/internal/domain/models"
)

func TestCanAssignRole(t *testing.T) {
	tests := []struct {
		manager, target string
		want            bool
	}{
		{models.HouseholdRoleOwner, models.HouseholdRoleOwner, true},
		{models.HouseholdRoleOwner, models.HouseholdRoleVisitor, true},
		{models.HouseholdRoleUser, models.HouseholdRoleVisitor, false},
		{models.HouseholdRoleOwner, models.CommunityRoleAdmin, false},
		{models.CommunityRoleAdmin, models.CommunityRoleManager, true},
		{models.CommunityRoleAdmin, models.BuildingRoleMember, true},
		{models.CommunityRoleManager, models.CommunityRoleMember, false},
		{"", models.HouseholdRoleUser, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanAssignRole(tt.manager, tt.target), "%s -> %s", tt.manager, tt.target)
	}
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, HasCapability(CommunityPermissions(models.CommunityRoleAdmin), CapManageCommunity))
	assert.False(t, HasCapability(CommunityPermissions(models.CommunityRoleManager), CapManageCommunity))
	assert.True(t, HasCapability(HouseholdPermissions(models.HouseholdRoleUser), CapControlDevices))
	assert.False(t, HasCapability(HouseholdPermissions(models.HouseholdRoleVisitor), CapManageItems))
	assert.Empty(t, CommunityPermissions("UNKNOWN"))
}

func TestPermissionHierarchy(t *testing.T) {
	e := newEnv(t)
	root := e.admin("root")
	manager := e.user("manager")
	resident := e.user("resident")
	outsider := e.user("outsider")

	c := e.community("c1")
	e.communityMember(c.ID, manager.ID, models.CommunityRoleManager)
	b := e.building(c.ID, "b1")
	h := e.household(&b.ID, "h1")
	e.householdMember(h.ID, resident.ID, models.HouseholdRoleUser)

	p := e.perms
	assert.True(t, p.IsSuperAdmin(root.ID))
	assert.False(t, p.IsSuperAdmin(manager.ID))

	assert.True(t, p.CanManageBuilding(manager.ID, b.ID))
	assert.True(t, p.CanManageHousehold(manager.ID, h.ID))
	assert.True(t, p.CanAccessHousehold(resident.ID, h.ID))
	assert.False(t, p.CanManageHousehold(resident.ID, h.ID))

	assert.False(t, p.CanAccessHousehold(outsider.ID, h.ID))
	assert.False(t, p.CanViewCommunity(outsider.ID, c.ID))
	assert.True(t, p.CanViewCommunity(root.ID, c.ID))
	assert.True(t, p.CanMessageHousehold(root.ID, h.ID))
	assert.False(t, p.CanMessageHousehold(outsider.ID, h.ID))
}

func TestFrontDeskCoverage(t *testing.T) {
	e := newEnv(t)
	desk := e.user("desk")
	c := e.community("c1")
	b1 := e.building(c.ID, "b1")
	b2 := e.building(c.ID, "b2")
	h := e.household(&b1.ID, "h1")

	g := e.group(c.ID, models.WorkingGroupFrontDoorTeam, desk.ID)
	e.grant(g.ID, models.PermissionView, models.ScopeSpecificBuilding, &b1.ID)

	assert.True(t, e.perms.IsFrontDeskForBuilding(desk.ID, b1.ID))
	assert.False(t, e.perms.IsFrontDeskForBuilding(desk.ID, b2.ID))
	assert.True(t, e.perms.CanMessageHousehold(desk.ID, h.ID))
	assert.True(t, e.perms.IsWorkingGroupMember(desk.ID, g.ID))
	assert.False(t, e.perms.IsWorkingGroupLeader(desk.ID, g.ID))

	// 停用的工作组不再覆盖
	e.db.Model(&g).Update("is_active", false)
	assert.False(t, e.perms.IsFrontDeskForBuilding(desk.ID, b1.ID))
}

func TestFrontDeskMessagingNeedsMembershipOnly(t *testing.T) {
	e := newEnv(t)
	desk := e.user("desk")
	c := e.community("c1")
	other := e.community("c2")
	b := e.building(c.ID, "b1")
	h := e.household(&b.ID, "h1")

	e.group(c.ID, models.WorkingGroupFrontDoorTeam, desk.ID)

	assert.True(t, e.perms.IsFrontDeskMember(desk.ID, c.ID))
	assert.False(t, e.perms.IsFrontDeskMember(desk.ID, other.ID))
	assert.False(t, e.perms.IsFrontDeskForBuilding(desk.ID, b.ID), "no scope grant")
	assert.True(t, e.perms.CanMessageHousehold(desk.ID, h.ID))

	maint := e.user("maint")
	e.group(c.ID, models.WorkingGroupMaintenance, maint.ID)
	assert.False(t, e.perms.CanMessageHousehold(maint.ID, h.ID))
}
