package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/domain/models"
)

func newJoinRequestService(e *env) InterfaceJoinRequestService {
	return NewJoinRequestService(e.db, e.cfg, e.perms, e.notify)
}

func TestJoinHouseholdCascadesToBuildingAndCommunity(t *testing.T) {
	e := newEnv(t)
	svc := newJoinRequestService(e)
	owner, applicant, stranger := e.user("owner"), e.user("applicant"), e.user("stranger")
	c := e.community("Harbour")
	b := e.building(c.ID, "A")
	h := e.household(&b.ID, "A-101")
	e.householdMember(h.ID, owner.ID, models.HouseholdRoleOwner)

	req, err := svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "Household", TargetID: h.ID, Message: " 新住户 "})
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestPending, req.Status)
	assert.Equal(t, models.JoinTargetHousehold, req.Type)
	assert.Equal(t, "新住户", req.Message)

	_, err = svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "household", TargetID: h.ID})
	assert.ErrorIs(t, err, ErrJoinRequestDuplicate)

	_, _, err = svc.ListForTarget(stranger.ID, "household", h.ID, "", models.PaginationQuery{})
	assert.ErrorIs(t, err, ErrForbidden)
	list, res, err := svc.ListForTarget(owner.ID, "household", h.ID, "", models.PaginationQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.NotNil(t, list[0].User)
	assert.Equal(t, applicant.ID, list[0].User.ID)

	_, err = svc.ApproveRequest(stranger.ID, req.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := svc.ApproveRequest(owner.ID, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestApproved, approved.Status)
	require.NotNil(t, approved.ReviewedByID)
	assert.Equal(t, owner.ID, *approved.ReviewedByID)
	assert.NotNil(t, approved.ReviewedAt)

	assert.Equal(t, models.HouseholdRoleUser, e.perms.HouseholdRole(applicant.ID, h.ID))
	assert.Equal(t, models.BuildingRoleMember, e.perms.BuildingRole(applicant.ID, b.ID))
	assert.Equal(t, models.CommunityRoleMember, e.perms.CommunityRole(applicant.ID, c.ID))

	notes := e.notificationsFor(applicant.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationJoinRequest, notes[0].Type)

	_, err = svc.ApproveRequest(owner.ID, req.ID, "")
	assert.ErrorIs(t, err, ErrJoinRequestNotPending)
	_, err = svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "household", TargetID: h.ID})
	assert.ErrorIs(t, err, ErrMemberAlreadyExist)
}

func TestJoinBuildingKeepsExistingCommunityRole(t *testing.T) {
	e := newEnv(t)
	svc := newJoinRequestService(e)
	manager, applicant := e.user("manager"), e.user("applicant")
	c := e.community("Harbour")
	b := e.building(c.ID, "A")
	e.communityMember(c.ID, manager.ID, models.CommunityRoleAdmin)
	e.communityMember(c.ID, applicant.ID, models.CommunityRoleViewer)

	req, err := svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "building", TargetID: b.ID})
	require.NoError(t, err)

	_, err = svc.ApproveRequest(manager.ID, req.ID, "boss")
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = svc.ApproveRequest(manager.ID, req.ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, models.BuildingRoleManager, e.perms.BuildingRole(applicant.ID, b.ID))
	assert.Equal(t, models.CommunityRoleViewer, e.perms.CommunityRole(applicant.ID, c.ID))
}

func TestJoinCommunityRoleCannotExceedReviewer(t *testing.T) {
	e := newEnv(t)
	svc := newJoinRequestService(e)
	manager, applicant := e.user("manager"), e.user("applicant")
	c := e.community("Harbour")
	e.communityMember(c.ID, manager.ID, models.CommunityRoleManager)

	req, err := svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "community", TargetID: c.ID})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(manager.ID, req.ID, models.CommunityRoleAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAssignable)

	_, err = svc.ApproveRequest(manager.ID, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.CommunityRoleMember, e.perms.CommunityRole(applicant.ID, c.ID))
}

func TestRejectAndStaleRequests(t *testing.T) {
	e := newEnv(t)
	svc := newJoinRequestService(e)
	owner, applicant := e.user("owner"), e.user("applicant")
	c := e.community("Harbour")
	b := e.building(c.ID, "A")
	h := e.household(&b.ID, "A-101")
	e.householdMember(h.ID, owner.ID, models.HouseholdRoleOwner)

	_, err := svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "community", TargetID: 999})
	assert.ErrorIs(t, err, ErrCommunityNotFound)
	_, err = svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "planet", TargetID: 1})
	assert.ErrorIs(t, err, ErrInvalidParam)

	first, err := svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "household", TargetID: h.ID})
	require.NoError(t, err)
	rejected, err := svc.RejectRequest(owner.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestRejected, rejected.Status)
	_, err = svc.RejectRequest(owner.ID, first.ID)
	assert.ErrorIs(t, err, ErrJoinRequestNotPending)

	second, err := svc.SubmitRequest(applicant.ID, &JoinRequestInput{Type: "household", TargetID: h.ID})
	require.NoError(t, err, "a rejected request does not block a new one")

	// 申请期间已被直接加入
	e.householdMember(h.ID, applicant.ID, models.HouseholdRoleVisitor)
	_, err = svc.ApproveRequest(owner.ID, second.ID, "")
	assert.ErrorIs(t, err, ErrMemberAlreadyExist)
	var stored models.JoinRequest
	require.NoError(t, e.db.First(&stored, second.ID).Error)
	assert.Equal(t, models.JoinRequestRejected, stored.Status)

	mine, res, err := svc.ListMine(applicant.ID, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, second.ID, mine[0].ID)

	pending, _, err := svc.ListForTarget(owner.ID, "household", h.ID, "", models.PaginationQuery{})
	require.NoError(t, err)
	assert.Empty(t, pending)
	all, _, err := svc.ListForTarget(owner.ID, "household", h.ID, "all", models.PaginationQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
