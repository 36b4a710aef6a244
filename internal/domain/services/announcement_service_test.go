package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/domain/models"
)

type announcementFixture struct {
	*env
	svc      *AnnouncementService
	clock    time.Time
	root     models.User
	manager  models.User
	resident models.User
	c1, c2   models.Community
	b1, b2   models.Building
	h1, h2   models.Household
}

func newAnnouncementFixture(t *testing.T) *announcementFixture {
	e := newEnv(t)
	f := &announcementFixture{env: e, clock: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewAnnouncementService(e.db, e.cfg, e.perms).(*AnnouncementService)
	f.svc.now = func() time.Time { return f.clock }

	f.root = e.admin("root")
	f.manager = e.user("manager")
	f.resident = e.user("resident")
	f.c1 = e.community("Harbour")
	f.c2 = e.community("Hillside")
	e.communityMember(f.c1.ID, f.manager.ID, models.CommunityRoleAdmin)
	f.b1 = e.building(f.c1.ID, "A")
	f.b2 = e.building(f.c1.ID, "B")
	f.h1 = e.household(&f.b1.ID, "A-101")
	f.h2 = e.household(&f.b2.ID, "B-201")
	e.householdMember(f.h1.ID, f.resident.ID, models.HouseholdRoleOwner)
	return f
}

func (f *announcementFixture) post(actorID uint, req AnnouncementRequest) models.Announcement {
	f.t.Helper()
	a, err := f.svc.CreateAnnouncement(actorID, &req)
	require.NoError(f.t, err)
	return *a
}

func TestAnnouncementVisibility(t *testing.T) {
	f := newAnnouncementFixture(t)
	b3 := f.building(f.c2.ID, "C")

	system := f.post(f.root.ID, AnnouncementRequest{Source: models.AnnouncementSourceSystem, Title: "维护", Message: "系统维护"})
	community := f.post(f.manager.ID, AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "停水", Message: "周六停水"})
	direct := f.post(f.manager.ID, AnnouncementRequest{
		Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "快递", Message: "请取件",
		TargetType: models.AnnouncementTargetHousehold, TargetID: &f.h1.ID,
	})
	f.post(f.manager.ID, AnnouncementRequest{Source: models.AnnouncementSourceBuilding, SourceID: &f.b2.ID, Title: "电梯", Message: "B 栋电梯检修"})
	f.post(f.manager.ID, AnnouncementRequest{
		Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "快递", Message: "请取件",
		TargetType: models.AnnouncementTargetHousehold, TargetID: &f.h2.ID,
	})
	f.post(f.root.ID, AnnouncementRequest{Source: models.AnnouncementSourceBuilding, SourceID: &b3.ID, Title: "C", Message: "其他社区"})

	expired := f.post(f.manager.ID, AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "旧", Message: "已过期"})
	require.NoError(t, f.db.Model(&expired).Update("expires_at", f.clock.Add(-time.Hour)).Error)
	withdrawn := f.post(f.manager.ID, AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "撤回", Message: "撤回"})
	require.NoError(t, f.svc.DeactivateAnnouncement(f.manager.ID, withdrawn.ID))

	feed, err := f.svc.ListForHousehold(f.resident.ID, f.h1.ID)
	require.NoError(t, err)
	ids := []uint{}
	for _, a := range feed.Announcements {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []uint{system.ID, community.ID, direct.ID}, ids)
	assert.Equal(t, 3, feed.UnreadCount)
	assert.Len(t, feed.BySource[models.AnnouncementSourceCommunity], 2)
	assert.Len(t, feed.BySource[models.AnnouncementSourceSystem], 1)

	require.NoError(t, f.svc.MarkRead(f.resident.ID, f.h1.ID, community.ID))
	require.NoError(t, f.svc.MarkRead(f.resident.ID, f.h1.ID, community.ID), "marking twice is harmless")
	feed, err = f.svc.ListForHousehold(f.resident.ID, f.h1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, feed.UnreadCount)
	for _, a := range feed.Announcements {
		assert.Equal(t, a.ID == community.ID, a.IsRead, "announcement %d", a.ID)
	}

	var reads int64
	f.db.Model(&models.AnnouncementRead{}).Count(&reads)
	assert.Equal(t, int64(1), reads)

	assert.ErrorIs(t, f.svc.MarkRead(f.resident.ID, f.h1.ID, expired.ID), ErrAnnouncementNotFound)
}

func TestAnnouncementListNeedsHouseholdMembership(t *testing.T) {
	f := newAnnouncementFixture(t)

	_, err := f.svc.ListForHousehold(f.manager.ID, f.h1.ID)
	assert.ErrorIs(t, err, ErrForbidden, "community admins do not read a household's feed")
	_, err = f.svc.ListForHousehold(f.resident.ID, f.h2.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.ListForHousehold(f.resident.ID, 999)
	assert.ErrorIs(t, err, ErrHouseholdNotFound)
}

func TestCreateAnnouncementChecks(t *testing.T) {
	f := newAnnouncementFixture(t)
	b3 := f.building(f.c2.ID, "C")
	past := f.clock.Add(-time.Minute)

	tests := []struct {
		name  string
		actor uint
		req   AnnouncementRequest
		want  error
	}{
		{"system needs super admin", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceSystem, Title: "t", Message: "m"}, ErrForbidden},
		{"missing source id", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceCommunity, Title: "t", Message: "m"}, ErrInvalidParam},
		{"other community", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: &f.c2.ID, Title: "t", Message: "m"}, ErrForbidden},
		{"unknown community", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: uintPtr(999), Title: "t", Message: "m"}, ErrCommunityNotFound},
		{"target outside community", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "t", Message: "m",
				TargetType: models.AnnouncementTargetBuilding, TargetID: &b3.ID}, ErrInvalidParam},
		{"building cannot target community", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceBuilding, SourceID: &f.b1.ID, Title: "t", Message: "m",
				TargetType: models.AnnouncementTargetCommunity, TargetID: &f.c1.ID}, ErrInvalidParam},
		{"target id required", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "t", Message: "m",
				TargetType: models.AnnouncementTargetHousehold}, ErrInvalidParam},
		{"already expired", f.manager.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceCommunity, SourceID: &f.c1.ID, Title: "t", Message: "m", ExpiresAt: &past}, ErrInvalidParam},
		{"resident", f.resident.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceBuilding, SourceID: &f.b1.ID, Title: "t", Message: "m"}, ErrForbidden},
		{"empty title", f.root.ID,
			AnnouncementRequest{Source: models.AnnouncementSourceSystem, Message: "m"}, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.CreateAnnouncement(tt.actor, &req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	a := f.post(f.manager.ID, AnnouncementRequest{
		Source: models.AnnouncementSourceBuilding, SourceID: &f.b1.ID, Title: "t", Message: "m",
		TargetType: models.AnnouncementTargetHousehold, TargetID: &f.h1.ID,
	})
	assert.True(t, a.IsActive)
	assert.Equal(t, f.manager.ID, a.CreatedByID)
	assert.ErrorIs(t, f.svc.DeactivateAnnouncement(f.resident.ID, a.ID), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeactivateAnnouncement(f.manager.ID, 999), ErrAnnouncementNotFound)
}
