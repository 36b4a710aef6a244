package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"estatehub-http-service/internal/domain/models"
)

type doorbellFixture struct {
	*env
	svc       *DoorbellService
	redis     *miniredis.Miniredis
	clock     time.Time
	building  models.Building
	home      models.Household
	bell      *models.DoorBell
	manager   models.User
	owner     models.User
	frontDesk models.User
	stranger  models.User
}

func newDoorbellFixture(t *testing.T) *doorbellFixture {
	e := newEnv(t)
	redisSvc, mr := newTestRedis(t)
	c := e.community("Harbor")
	b := e.building(c.ID, "Tower A")
	f := &doorbellFixture{
		env:       e,
		redis:     mr,
		clock:     time.Date(2026, 7, 1, 18, 30, 0, 0, time.UTC),
		building:  b,
		home:      e.household(&b.ID, "0801"),
		manager:   e.user("manager"),
		owner:     e.user("owner"),
		frontDesk: e.user("desk"),
		stranger:  e.user("stranger"),
	}
	e.communityMember(c.ID, f.manager.ID, models.CommunityRoleManager)
	e.householdMember(f.home.ID, f.owner.ID, models.HouseholdRoleOwner)
	desk := e.group(c.ID, models.WorkingGroupFrontDoorTeam, f.frontDesk.ID)
	e.grant(desk.ID, models.PermissionView, models.ScopeSpecificBuilding, &b.ID)

	f.svc = NewDoorbellService(e.db, e.cfg, e.perms, e.notify, redisSvc, e.broker).(*DoorbellService)
	f.svc.now = func() time.Time { return f.clock }

	bell, err := f.svc.CreateDoorbell(f.manager.ID, b.ID, &DoorbellRequest{DoorBellNumber: " 801 ", HouseholdID: &f.home.ID})
	require.NoError(t, err)
	f.bell = bell
	return f
}

func (f *doorbellFixture) tick(d time.Duration) {
	f.clock = f.clock.Add(d)
	f.redis.FastForward(d)
}

func TestDoorbellManagement(t *testing.T) {
	f := newDoorbellFixture(t)
	assert.Equal(t, "801", f.bell.DoorBellNumber)
	assert.True(t, f.bell.IsEnabled)

	_, err := f.svc.CreateDoorbell(f.manager.ID, f.building.ID, &DoorbellRequest{DoorBellNumber: "801"})
	assert.ErrorIs(t, err, ErrDoorbellAlreadyExist)
	_, err = f.svc.CreateDoorbell(f.owner.ID, f.building.ID, &DoorbellRequest{DoorBellNumber: "802"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateDoorbell(f.manager.ID, f.building.ID, &DoorbellRequest{})
	assert.ErrorIs(t, err, ErrInvalidParam)

	annex := f.env.building(f.building.CommunityID, "Annex")
	elsewhere := f.env.household(&annex.ID, "A-1")
	_, err = f.svc.CreateDoorbell(f.manager.ID, f.building.ID, &DoorbellRequest{DoorBellNumber: "803", HouseholdID: &elsewhere.ID})
	assert.ErrorIs(t, err, ErrInvalidParam)

	unlink := uint(0)
	disabled := false
	updated, err := f.svc.UpdateDoorbell(f.manager.ID, f.bell.ID, &DoorbellRequest{HouseholdID: &unlink, IsEnabled: &disabled, Description: "lobby"})
	require.NoError(t, err)
	assert.Nil(t, updated.HouseholdID)
	assert.False(t, updated.IsEnabled)
	assert.Equal(t, "lobby", updated.Description)

	list, err := f.svc.ListDoorbells(f.frontDesk.ID, f.building.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = f.svc.ListDoorbells(f.stranger.ID, f.building.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.DeleteDoorbell(f.manager.ID, f.bell.ID))
	assert.ErrorIs(t, f.svc.DeleteDoorbell(f.manager.ID, f.bell.ID), ErrDoorbellNotFound)
}

func TestRingRejectsUnusableBells(t *testing.T) {
	f := newDoorbellFixture(t)
	spare, err := f.svc.CreateDoorbell(f.manager.ID, f.building.ID, &DoorbellRequest{DoorBellNumber: "900"})
	require.NoError(t, err)
	off := false
	muted, err := f.svc.CreateDoorbell(f.manager.ID, f.building.ID, &DoorbellRequest{DoorBellNumber: "901", HouseholdID: &f.home.ID, IsEnabled: &off})
	require.NoError(t, err)
	annex := f.env.building(f.building.CommunityID, "Annex")

	tests := []struct {
		name       string
		buildingID uint
		req        RingRequest
		want       error
	}{
		{"missing identifier", f.building.ID, RingRequest{}, ErrInvalidParam},
		{"unknown number", f.building.ID, RingRequest{DoorBellNumber: "404"}, ErrDoorbellNotFound},
		{"no household", f.building.ID, RingRequest{DoorBellID: spare.ID}, ErrDoorbellNoHousehold},
		{"disabled", f.building.ID, RingRequest{DoorBellNumber: "901"}, ErrDoorbellDisabled},
		{"wrong building", annex.ID, RingRequest{DoorBellID: muted.ID}, ErrDoorbellWrongBuilding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Ring(0, tt.buildingID, &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRingNotifiesAndDeduplicates(t *testing.T) {
	f := newDoorbellFixture(t)

	first, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)
	assert.Equal(t, models.CallStatusRinging, first.Session.Status)
	require.NotNil(t, first.Session.HouseholdID)
	assert.Equal(t, f.home.ID, *first.Session.HouseholdID)

	inbox := f.notificationsFor(f.owner.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationDoorBellRung, inbox[0].Type)

	event := f.broker.last(DoorbellRingTopic(f.building.ID))
	require.NotNil(t, event)
	assert.Equal(t, "801", gjson.GetBytes(event, "door_bell_number").String())
	assert.Equal(t, uint64(first.Session.ID), gjson.GetBytes(event, "session_id").Uint())

	f.tick(2 * time.Second)
	again, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellID: f.bell.ID})
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	assert.Equal(t, first.Session.ID, again.Session.ID)
	assert.Len(t, f.notificationsFor(f.owner.ID), 1)

	f.tick(6 * time.Second)
	later, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)
	assert.False(t, later.Deduplicated)
	assert.NotEqual(t, first.Session.ID, later.Session.ID)

	active, err := f.svc.ListCalls(f.manager.ID, f.building.ID, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestRingDedupeWithoutRedis(t *testing.T) {
	f := newDoorbellFixture(t)
	f.svc.Redis = nil

	first, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Second)
	again, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	assert.Equal(t, first.Session.ID, again.Session.ID)

	f.clock = f.clock.Add(10 * time.Second)
	later, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)
	assert.False(t, later.Deduplicated)
}

func TestAnswerAndUnlock(t *testing.T) {
	f := newDoorbellFixture(t)
	rung, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)
	id := rung.Session.ID

	_, err = f.svc.UpdateCall(f.stranger.ID, id, &DoorbellCallAction{Action: CallActionAnswer})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateCall(f.frontDesk.ID, id, &DoorbellCallAction{Action: CallActionAnswer})
	assert.ErrorIs(t, err, ErrForbidden, "front desk only handles routed calls")
	_, err = f.svc.UpdateCall(f.owner.ID, id, &DoorbellCallAction{Action: CallActionReject, Unlock: true})
	assert.ErrorIs(t, err, ErrInvalidParam)

	session, err := f.svc.UpdateCall(f.owner.ID, id, &DoorbellCallAction{Action: CallActionAnswer, Unlock: true})
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusAnswered, session.Status)
	assert.True(t, session.DoorUnlocked)
	assert.Contains(t, f.broker.topics(), DoorbellUnlockTopic(f.building.ID, f.bell.ID))

	var logs []models.DoorAccessLog
	require.NoError(t, f.db.Where("session_id = ?", id).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AccessResultSuccess, logs[0].Result)
	assert.Equal(t, models.AccessMethodRemote, logs[0].Method)

	_, err = f.svc.UpdateCall(f.owner.ID, id, &DoorbellCallAction{Action: CallActionAnswer})
	assert.ErrorIs(t, err, ErrCallInvalidState)

	ended, err := f.svc.UpdateCall(f.owner.ID, id, &DoorbellCallAction{Action: CallActionEnd})
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusEnded, ended.Status)
	assert.NotNil(t, ended.EndedAt)

	got, err := f.svc.GetCall(f.manager.ID, id)
	require.NoError(t, err)
	require.NotNil(t, got.DoorBell)
	assert.Equal(t, "801", got.DoorBell.DoorBellNumber)
}

func TestUnlockFailsWhenBrokerOffline(t *testing.T) {
	f := newDoorbellFixture(t)
	rung, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)

	f.broker.connected = false
	session, err := f.svc.UpdateCall(f.owner.ID, rung.Session.ID, &DoorbellCallAction{Action: CallActionAnswer, Unlock: true})
	assert.ErrorIs(t, err, ErrUnavailable)
	require.NotNil(t, session)
	assert.Equal(t, models.CallStatusAnswered, session.Status)
	assert.False(t, session.DoorUnlocked)

	var entry models.DoorAccessLog
	require.NoError(t, f.db.Where("session_id = ?", rung.Session.ID).First(&entry).Error)
	assert.Equal(t, models.AccessResultFailure, entry.Result)
}

func TestRouteTimedOutCalls(t *testing.T) {
	f := newDoorbellFixture(t)
	rung, err := f.svc.Ring(0, f.building.ID, &RingRequest{DoorBellNumber: "801"})
	require.NoError(t, err)

	n, err := f.svc.RouteTimedOutCalls(f.clock.Add(29 * time.Second))
	require.NoError(t, err)
	assert.Zero(t, n, "still within the building timeout")

	n, err = f.svc.RouteTimedOutCalls(f.clock.Add(30 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a call ringing for exactly the timeout is routed")

	deskInbox := f.notificationsFor(f.frontDesk.ID)
	require.Len(t, deskInbox, 1)
	assert.Equal(t, "Unanswered doorbell", deskInbox[0].Title)

	n, err = f.svc.RouteTimedOutCalls(f.clock.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	session, err := f.svc.UpdateCall(f.frontDesk.ID, rung.Session.ID, &DoorbellCallAction{Action: CallActionAnswer})
	require.NoError(t, err)
	assert.True(t, session.RoutedToFrontDesk)
	require.NotNil(t, session.AnsweredByID)
	assert.Equal(t, f.frontDesk.ID, *session.AnsweredByID)
}
