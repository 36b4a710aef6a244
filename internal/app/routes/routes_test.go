package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	jwt    services.InterfaceJWTService
}

type envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	pool, err := database.NewConnectionPoolWithDialector(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	require.NoError(t, pool.GetDB().AutoMigrate(models.AllModels()...))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		EnvType:                "test",
		JWTSecretKey:           "test-secret",
		JWTExpireHours:         1,
		DefaultDoorbellTimeout: 30,
	}
	c := container.NewServiceContainer(pool, cfg, client, nil)
	return &apiServer{
		t:      t,
		db:     pool.GetDB(),
		router: SetupRouter(c, zap.NewNop()),
		jwt:    c.GetService("jwt").(services.InterfaceJWTService),
	}
}

func (s *apiServer) create(v interface{}) {
	s.t.Helper()
	require.NoError(s.t, s.db.Create(v).Error)
}

func (s *apiServer) user(name string) models.User {
	s.t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", Password: "x", Status: models.UserStatusActive}
	s.create(&u)
	return u
}

// call 以 user 身份发送 JSON 请求；user 为 nil 时不带令牌
func (s *apiServer) call(method, path string, user *models.User, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := s.jwt.GenerateToken(user.ID, user.IsAdmin)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

// estate 一个社区、一栋楼、一户及其 OWNER
type estate struct {
	community models.Community
	building  models.Building
	household models.Household
	owner     models.User
}

func (s *apiServer) estate() estate {
	s.t.Helper()
	e := estate{owner: s.user("owner")}
	e.community = models.Community{Name: "Harbour"}
	s.create(&e.community)
	e.building = models.Building{CommunityID: e.community.ID, Name: "A", DoorbellTimeoutSeconds: 30}
	s.create(&e.building)
	e.household = models.Household{Name: "A-101", BuildingID: &e.building.ID, InvitationCode: "INVA101"}
	s.create(&e.household)
	s.create(&models.HouseholdMember{HouseholdID: e.household.ID, UserID: e.owner.ID, Role: models.HouseholdRoleOwner})
	return e
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	s := newAPIServer(t)

	w, resp := s.call(http.MethodPut, "/api/catering/orders/1/status", nil, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, code.ErrTokenInvalid, resp.Code)

	w, resp = s.call(http.MethodGet, "/api/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, code.ErrSuccess, resp.Code)
}

func TestUpdateWorkflowStepEndpoint(t *testing.T) {
	s := newAPIServer(t)
	e := s.estate()
	creator, worker, stranger := s.user("creator"), s.user("worker"), s.user("stranger")

	wfType := models.WorkflowType{Name: "Repair", IsActive: true}
	s.create(&wfType)
	wf := models.Workflow{
		WorkflowTypeID: wfType.ID,
		Name:           "Lobby lights",
		Status:         "PENDING",
		Priority:       "MEDIUM",
		CommunityID:    &e.community.ID,
		CreatedByID:    creator.ID,
	}
	s.create(&wf)
	step := models.WorkflowStep{WorkflowID: wf.ID, StepOrder: 1, Name: "Inspect", Status: "PENDING", AssignedToID: &worker.ID}
	s.create(&step)
	path := fmt.Sprintf("/api/workflows/%d/steps/%d", wf.ID, step.ID)

	w, resp := s.call(http.MethodPut, path, &stranger, map[string]string{"status": "IN_PROGRESS"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, resp = s.call(http.MethodPut, path, &e.owner, map[string]string{"status": "IN_PROGRESS"})
	assert.Equal(t, http.StatusForbidden, w.Code, "household owners do not work on community workflows")
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, resp = s.call(http.MethodPut, path, &worker, map[string]string{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, code.ErrSuccess, resp.Code)
	assert.Equal(t, "IN_PROGRESS", resp.Data["status"])
	assert.NotNil(t, resp.Data["started_at"])

	w, resp = s.call(http.MethodPut, path, &creator, map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrInvalidTransition, resp.Code)

	w, resp = s.call(http.MethodPut, fmt.Sprintf("/api/workflows/%d/steps/abc", wf.ID), &creator, map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEqual(t, code.ErrSuccess, resp.Code)
}

func TestDoorbellRingAndAnswerEndpoints(t *testing.T) {
	s := newAPIServer(t)
	e := s.estate()
	visitor, stranger := s.user("visitor"), s.user("stranger")
	bell := models.DoorBell{BuildingID: e.building.ID, DoorBellNumber: "101", HouseholdID: &e.household.ID, IsEnabled: true}
	s.create(&bell)
	ringPath := fmt.Sprintf("/api/buildings/%d/doorbells/ring", e.building.ID)

	w, resp := s.call(http.MethodPost, ringPath, &visitor, map[string]string{"door_bell_number": "101"})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	assert.Equal(t, code.ErrSuccess, resp.Code)
	assert.Equal(t, false, resp.Data["deduplicated"])
	session, ok := resp.Data["session"].(map[string]interface{})
	require.True(t, ok)
	sessionID := uint(session["id"].(float64))
	assert.Equal(t, models.CallStatusRinging, session["status"])

	w, resp = s.call(http.MethodPost, ringPath, &visitor, map[string]string{"door_bell_number": "101"})
	assert.Equal(t, http.StatusOK, w.Code, "a second ring inside the window reuses the session")
	assert.Equal(t, true, resp.Data["deduplicated"])

	w, resp = s.call(http.MethodPost, ringPath, &visitor, map[string]string{"door_bell_number": "999"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, code.ErrDoorbellNotFound, resp.Code)

	callPath := fmt.Sprintf("/api/doorbell-calls/%d", sessionID)
	w, resp = s.call(http.MethodPut, callPath, &stranger, map[string]string{"action": "answer"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, resp = s.call(http.MethodPut, callPath, &visitor, map[string]string{"action": "answer"})
	assert.Equal(t, http.StatusForbidden, w.Code, "the caller cannot answer their own ring")
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, resp = s.call(http.MethodPut, callPath, &e.owner, map[string]string{"action": "answer"})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, code.ErrSuccess, resp.Code)
	assert.Equal(t, models.CallStatusAnswered, resp.Data["status"])

	w, resp = s.call(http.MethodPut, callPath, &e.owner, map[string]string{"action": "answer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrCallInvalidState, resp.Code)
}

func TestCateringOrderStatusEndpoint(t *testing.T) {
	s := newAPIServer(t)
	e := s.estate()
	cook, stranger := s.user("cook"), s.user("stranger")
	kitchen := models.WorkingGroup{CommunityID: e.community.ID, Name: "Kitchen", Type: models.WorkingGroupCatering, IsActive: true}
	s.create(&kitchen)
	s.create(&models.WorkingGroupMember{WorkingGroupID: kitchen.ID, UserID: cook.ID, Role: models.WorkingGroupRoleMember})

	order := models.CateringOrder{
		OrderNumber:  "CO-20260501-0001",
		UserID:       e.owner.ID,
		HouseholdID:  e.household.ID,
		Status:       models.OrderStatusSubmitted,
		DeliveryType: models.DeliveryImmediate,
		TotalAmount:  24,
	}
	s.create(&order)
	path := fmt.Sprintf("/api/catering/orders/%d/status", order.ID)

	w, resp := s.call(http.MethodPut, path, &e.owner, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code, "residents cannot move their own order")
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, resp = s.call(http.MethodPut, path, &stranger, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, resp = s.call(http.MethodPut, path, &cook, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, code.ErrSuccess, resp.Code)
	assert.Equal(t, models.OrderStatusConfirmed, resp.Data["status"])
	assert.NotNil(t, resp.Data["confirmed_at"])

	w, resp = s.call(http.MethodPut, path, &cook, map[string]string{"status": "submitted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrInvalidOrderStatus, resp.Code)

	w, resp = s.call(http.MethodPut, path, &cook, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrBind, resp.Code)
}

func TestJoinRequestEndpoints(t *testing.T) {
	s := newAPIServer(t)
	e := s.estate()
	applicant, stranger := s.user("applicant"), s.user("stranger")

	w, resp := s.call(http.MethodPost, "/api/join-requests", &applicant,
		map[string]interface{}{"type": "household", "target_id": e.household.ID})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	requestID := uint(resp.Data["id"].(float64))

	w, resp = s.call(http.MethodPost, "/api/join-requests", &applicant,
		map[string]interface{}{"type": "household", "target_id": e.household.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrJoinRequestDuplicate, resp.Code)

	approve := fmt.Sprintf("/api/join-requests/%d/approve", requestID)
	w, resp = s.call(http.MethodPost, approve, &stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, resp = s.call(http.MethodPost, approve, &e.owner, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, models.JoinRequestApproved, resp.Data["status"])

	var member models.HouseholdMember
	require.NoError(t, s.db.Where("household_id = ? AND user_id = ?", e.household.ID, applicant.ID).First(&member).Error)
	assert.Equal(t, models.HouseholdRoleUser, member.Role)
}
