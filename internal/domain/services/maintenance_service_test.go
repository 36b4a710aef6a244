package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/domain/models"
)

type ticketFixture struct {
	*env
	svc      *MaintenanceService
	resident models.User
	manager  models.User
	lead     models.User
	crew     models.User
	building models.Building
	home     models.Household
	group    models.WorkingGroup
}

func newTicketFixture(t *testing.T) *ticketFixture {
	e := newEnv(t)
	svc := NewMaintenanceService(e.db, e.cfg, e.perms, e.notify).(*MaintenanceService)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	f := &ticketFixture{env: e, svc: svc}
	f.resident = e.user("resident")
	f.manager = e.user("manager")
	f.lead = e.user("lead")
	f.crew = e.user("crew")

	c := e.community("c1")
	e.communityMember(c.ID, f.manager.ID, models.CommunityRoleManager)
	f.building = e.building(c.ID, "b1")
	f.home = e.household(&f.building.ID, "home")
	e.householdMember(f.home.ID, f.resident.ID, models.HouseholdRoleOwner)

	f.group = e.group(c.ID, models.WorkingGroupMaintenance, f.crew.ID)
	require.NoError(t, e.db.Create(&models.WorkingGroupMember{
		WorkingGroupID: f.group.ID, UserID: f.lead.ID, Role: models.WorkingGroupRoleLeader,
	}).Error)
	return f
}

func TestTicketNumbersAreSequentialPerDay(t *testing.T) {
	f := newTicketFixture(t)

	first, err := f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "Leaking tap"})
	require.NoError(t, err)
	second, err := f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "Broken light"})
	require.NoError(t, err)

	assert.Equal(t, "MT-20260314-0001", first.TicketNumber)
	assert.Equal(t, "MT-20260314-0002", second.TicketNumber)
	assert.Equal(t, models.TicketStatusPendingEvaluation, first.Status)
	assert.Equal(t, models.TicketCategoryBuildingMaintenance, first.Category)
	assert.Equal(t, models.PriorityNormal, first.Priority)
	require.NotNil(t, first.WorkingGroupID)
	assert.Equal(t, f.group.ID, *first.WorkingGroupID)
	require.NotNil(t, first.CommunityID)

	// 工作组成员收到新工单通知
	assert.Len(t, f.notificationsFor(f.crew.ID), 2)

	f.svc.now = func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) }
	next, err := f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "Door"})
	require.NoError(t, err)
	assert.Equal(t, "MT-20260315-0001", next.TicketNumber)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(t)
	stranger := f.user("stranger")

	_, err := f.svc.CreateTicket(stranger.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "x", Category: "GARDENING"})
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "x", Priority: "CRITICAL"})
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: 404, Title: "x"})
	assert.ErrorIs(t, err, ErrHouseholdNotFound)
}

func TestTicketFullLifecycle(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "Heater"})
	require.NoError(t, err)

	_, err = f.svc.EvaluateTicket(f.resident.ID, ticket.ID, &EvaluateRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	ticket, err = f.svc.EvaluateTicket(f.manager.ID, ticket.ID, &EvaluateRequest{Priority: models.PriorityHigh, AssignedToID: &f.crew.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, models.PriorityHigh, ticket.Priority)

	_, err = f.svc.CompleteTicket(f.crew.ID, ticket.ID)
	assert.ErrorIs(t, err, ErrTicketInvalidStatus)

	_, err = f.svc.StartTicket(f.resident.ID, ticket.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	ticket, err = f.svc.StartTicket(f.crew.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusInProgress, ticket.Status)
	assert.NotNil(t, ticket.StartedAt)

	ticket, err = f.svc.CompleteTicket(f.crew.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusWorkCompleted, ticket.Status)

	_, err = f.svc.SignoffTicket(f.crew.ID, ticket.ID, &SignoffRequest{SignoffType: models.SignoffCrewLead, Rating: 5})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.SignoffTicket(f.lead.ID, ticket.ID, &SignoffRequest{SignoffType: models.SignoffCrewLead, Rating: 9})
	assert.ErrorIs(t, err, ErrInvalidParam)

	ticket, err = f.svc.SignoffTicket(f.lead.ID, ticket.ID, &SignoffRequest{SignoffType: models.SignoffCrewLead, Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusSignedOffByCrew, ticket.Status)

	ticket, err = f.svc.SignoffTicket(f.manager.ID, ticket.ID, &SignoffRequest{SignoffType: models.SignoffSupplierLead, Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusSignedOffBySupplier, ticket.Status)

	ticket, err = f.svc.SignoffTicket(f.resident.ID, ticket.ID, &SignoffRequest{SignoffType: models.SignoffHousehold, Rating: 5, Comments: "warm again"})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusClosed, ticket.Status)
	assert.NotNil(t, ticket.ClosedAt)

	got, err := f.svc.GetTicket(f.resident.ID, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, got.Signoffs, 3)

	_, err = f.svc.CancelTicket(f.resident.ID, ticket.ID)
	assert.ErrorIs(t, err, ErrTicketInvalidStatus)
}

func TestCancelAndListTickets(t *testing.T) {
	f := newTicketFixture(t)
	mine, err := f.svc.CreateTicket(f.resident.ID, &TicketRequest{HouseholdID: f.home.ID, Title: "Window"})
	require.NoError(t, err)

	stranger := f.user("stranger")
	_, err = f.svc.CancelTicket(stranger.ID, mine.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := f.svc.CancelTicket(f.resident.ID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCancelled, cancelled.Status)

	_, err = f.svc.StartTicket(f.crew.ID, mine.ID)
	assert.ErrorIs(t, err, ErrTicketInvalidStatus)

	// 无范围时工作组成员能看到路由到本组的工单
	list, res, err := f.svc.ListTickets(f.crew.ID, TicketFilter{}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, mine.ID, list[0].ID)

	list, _, err = f.svc.ListTickets(stranger.ID, TicketFilter{}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, _, err = f.svc.ListTickets(stranger.ID, TicketFilter{BuildingID: f.building.ID}, models.PaginationQuery{})
	assert.ErrorIs(t, err, ErrForbidden)

	list, _, err = f.svc.ListTickets(f.manager.ID, TicketFilter{BuildingID: f.building.ID, Status: models.TicketStatusCancelled}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRoutingPrefersGroupCoveringBuilding(t *testing.T) {
	e := newEnv(t)
	c := e.community("c1")
	b1 := e.building(c.ID, "b1")
	b2 := e.building(c.ID, "b2")
	general := e.group(c.ID, models.WorkingGroupMaintenance)
	specific := e.group(c.ID, models.WorkingGroupMaintenance)
	e.grant(specific.ID, models.PermissionManageBuilding, models.ScopeSpecificBuilding, &b2.ID)

	got := routingGroup(e.db, c.ID, &b2.ID, models.WorkingGroupMaintenance)
	require.NotNil(t, got)
	assert.Equal(t, specific.ID, *got)

	got = routingGroup(e.db, c.ID, &b1.ID, models.WorkingGroupMaintenance)
	require.NotNil(t, got)
	assert.Equal(t, general.ID, *got)

	assert.Nil(t, routingGroup(e.db, c.ID, &b1.ID, models.WorkingGroupCatering))
}

func TestRoutingSkipsGroupsScopedElsewhere(t *testing.T) {
	e := newEnv(t)
	c := e.community("c1")
	b1 := e.building(c.ID, "b1")
	b2 := e.building(c.ID, "b2")
	specific := e.group(c.ID, models.WorkingGroupMaintenance)
	e.grant(specific.ID, models.PermissionManageBuilding, models.ScopeSpecificBuilding, &b2.ID)

	assert.Nil(t, routingGroup(e.db, c.ID, &b1.ID, models.WorkingGroupMaintenance))

	wide := e.group(c.ID, models.WorkingGroupMaintenance)
	e.grant(wide.ID, models.PermissionManageBuilding, models.ScopeAllBuildings, nil)
	got := routingGroup(e.db, c.ID, &b1.ID, models.WorkingGroupMaintenance)
	require.NotNil(t, got)
	assert.Equal(t, wide.ID, *got)

	// 餐饮组按社区路由，不看楼栋授权
	kitchen := e.group(c.ID, models.WorkingGroupCatering)
	e.grant(kitchen.ID, models.PermissionView, models.ScopeSpecificBuilding, &b2.ID)
	got = routingGroup(e.db, c.ID, &b1.ID, models.WorkingGroupCatering)
	require.NotNil(t, got)
	assert.Equal(t, kitchen.ID, *got)
}
