package services

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/mqtt"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "estatehub.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		EnvType:                "test",
		JWTSecretKey:           "test-secret",
		JWTExpireHours:         1,
		DoorbellRingDedupe:     0,
		DefaultDoorbellTimeout: 30,
	}
}

func newTestRedis(t *testing.T) (InterfaceRedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisServiceWithClient(client), mr
}

type published struct {
	Topic   string
	Payload []byte
}

// fakeBroker records publishes and lets tests deliver messages to subscribers
type fakeBroker struct {
	mu        sync.Mutex
	connected bool
	messages  []published
	handlers  map[string]mqtt.MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connected: true, handlers: map[string]mqtt.MessageHandler{}}
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{Topic: topic, Payload: payload})
	return nil
}

func (b *fakeBroker) PublishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Publish(topic, 1, false, payload)
}

func (b *fakeBroker) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.Topic)
	}
	return out
}

func (b *fakeBroker) last(topic string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.messages) - 1; i >= 0; i-- {
		if b.messages[i].Topic == topic {
			return b.messages[i].Payload
		}
	}
	return nil
}

// env wires the core services over one database
type env struct {
	t      *testing.T
	db     *gorm.DB
	cfg    *config.Config
	perms  InterfacePermissionService
	notify InterfaceNotificationService
	broker *fakeBroker
}

func newEnv(t *testing.T) *env {
	db := newTestDB(t)
	cfg := newTestConfig()
	broker := newFakeBroker()
	return &env{
		t:      t,
		db:     db,
		cfg:    cfg,
		perms:  NewPermissionService(db, cfg),
		notify: NewNotificationService(db, cfg, broker),
		broker: broker,
	}
}

func (e *env) user(name string) models.User {
	e.t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", Password: "x", Status: models.UserStatusActive}
	require.NoError(e.t, e.db.Create(&u).Error)
	return u
}

func (e *env) admin(name string) models.User {
	e.t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", Password: "x", IsAdmin: true, Status: models.UserStatusActive}
	require.NoError(e.t, e.db.Create(&u).Error)
	return u
}

func (e *env) community(name string) models.Community {
	e.t.Helper()
	c := models.Community{Name: name}
	require.NoError(e.t, e.db.Create(&c).Error)
	return c
}

func (e *env) communityMember(communityID, userID uint, role string) {
	e.t.Helper()
	require.NoError(e.t, e.db.Create(&models.CommunityMember{CommunityID: communityID, UserID: userID, Role: role}).Error)
}

func (e *env) building(communityID uint, name string) models.Building {
	e.t.Helper()
	b := models.Building{CommunityID: communityID, Name: name, DoorbellTimeoutSeconds: 30}
	require.NoError(e.t, e.db.Create(&b).Error)
	return b
}

func (e *env) household(buildingID *uint, name string) models.Household {
	e.t.Helper()
	h := models.Household{Name: name, BuildingID: buildingID, InvitationCode: "INV" + name}
	require.NoError(e.t, e.db.Create(&h).Error)
	return h
}

func (e *env) householdMember(householdID, userID uint, role string) models.HouseholdMember {
	e.t.Helper()
	m := models.HouseholdMember{HouseholdID: householdID, UserID: userID, Role: role}
	require.NoError(e.t, e.db.Create(&m).Error)
	return m
}

func (e *env) group(communityID uint, groupType string, memberIDs ...uint) models.WorkingGroup {
	e.t.Helper()
	g := models.WorkingGroup{CommunityID: communityID, Name: groupType, Type: groupType, IsActive: true}
	require.NoError(e.t, e.db.Create(&g).Error)
	for _, id := range memberIDs {
		require.NoError(e.t, e.db.Create(&models.WorkingGroupMember{
			WorkingGroupID: g.ID, UserID: id, Role: models.WorkingGroupRoleMember,
		}).Error)
	}
	return g
}

func (e *env) grant(groupID uint, permission, scope string, scopeID *uint) {
	e.t.Helper()
	require.NoError(e.t, e.db.Create(&models.WorkingGroupPermission{
		WorkingGroupID: groupID, Permission: permission, Scope: scope, ScopeID: scopeID,
	}).Error)
}

func (e *env) notificationsFor(userID uint) []models.Notification {
	e.t.Helper()
	var list []models.Notification
	require.NoError(e.t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&list).Error)
	return list
}
