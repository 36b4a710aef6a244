package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
	"estatehub-http-service/internal/infrastructure/metrics"
)

// defaultRingDedupe 同一门铃在此窗口内重复按铃复用已有会话
const defaultRingDedupe = 5 * time.Second

// DoorbellRingTopic 按铃事件主题
func DoorbellRingTopic(buildingID uint) string {
	return fmt.Sprintf("estatehub/doorbell/%d/ring", buildingID)
}

// DoorbellUnlockTopic 开门指令主题
func DoorbellUnlockTopic(buildingID, bellID uint) string {
	return fmt.Sprintf("estatehub/doorbell/%d/%d/unlock", buildingID, bellID)
}

func ringDedupeKey(bellID uint) string {
	return fmt.Sprintf("doorbell:ring:%d", bellID)
}

// InterfaceDoorbellService 定义门铃服务接口
type InterfaceDoorbellService interface {
	ListDoorbells(actorID, buildingID uint) ([]models.DoorBell, error)
	CreateDoorbell(actorID, buildingID uint, req *DoorbellRequest) (*models.DoorBell, error)
	UpdateDoorbell(actorID, id uint, req *DoorbellRequest) (*models.DoorBell, error)
	DeleteDoorbell(actorID, id uint) error
	Ring(actorID, buildingID uint, req *RingRequest) (*RingResult, error)
	GetCall(actorID, id uint) (*models.DoorBellCallSession, error)
	UpdateCall(actorID, id uint, req *DoorbellCallAction) (*models.DoorBellCallSession, error)
	ListCalls(actorID, buildingID uint, activeOnly bool) ([]models.DoorBellCallSession, error)
	RouteTimedOutCalls(now time.Time) (int, error)
}

// DoorbellRequest 创建/更新门铃请求
type DoorbellRequest struct {
	DoorBellNumber string `json:"door_bell_number"`
	HouseholdID    *uint  `json:"household_id"`
	Description    string `json:"description"`
	IsEnabled      *bool  `json:"is_enabled"`
}

// RingRequest 按门铃，编号或 ID 二选一
type RingRequest struct {
	DoorBellNumber string `json:"door_bell_number"`
	DoorBellID     uint   `json:"door_bell_id"`
}

// RingResult 按铃结果；Deduplicated 表示复用了窗口内的已有会话
type RingResult struct {
	Session      *models.DoorBellCallSession `json:"session"`
	Deduplicated bool                        `json:"deduplicated"`
}

// DoorbellCallAction 门铃通话操作
type DoorbellCallAction struct {
	Action string `json:"action" binding:"required"`
	Unlock bool   `json:"unlock"`
}

// ringEvent 按铃 MQTT 消息
type ringEvent struct {
	SessionID      uint      `json:"session_id"`
	DoorBellID     uint      `json:"door_bell_id"`
	DoorBellNumber string    `json:"door_bell_number"`
	HouseholdID    *uint     `json:"household_id,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// DoorbellService 门铃服务
type DoorbellService struct {
	DB            *gorm.DB
	Config        *config.Config
	Permissions   InterfacePermissionService
	Notifications InterfaceNotificationService
	Redis         InterfaceRedisService
	Broker        MessageBroker
	now           func() time.Time
}

// NewDoorbellService 创建门铃服务；redis 与 broker 可为 nil
func NewDoorbellService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, notifications InterfaceNotificationService, redis InterfaceRedisService, broker MessageBroker) InterfaceDoorbellService {
	return &DoorbellService{
		DB:            db,
		Config:        cfg,
		Permissions:   perms,
		Notifications: notifications,
		Redis:         redis,
		Broker:        broker,
		now:           time.Now,
	}
}

func (s *DoorbellService) dedupeWindow() time.Duration {
	if s.Config != nil && s.Config.DoorbellRingDedupe > 0 {
		return s.Config.DoorbellRingDedupe
	}
	return defaultRingDedupe
}

func (s *DoorbellService) canViewBuilding(actorID, buildingID uint) bool {
	return s.Permissions.BuildingRole(actorID, buildingID) != "" ||
		s.Permissions.CanManageBuilding(actorID, buildingID) ||
		s.Permissions.IsFrontDeskForBuilding(actorID, buildingID)
}

func (s *DoorbellService) checkHousehold(buildingID uint, householdID *uint) error {
	if householdID == nil {
		return nil
	}
	var household models.Household
	if err := s.DB.Select("id", "building_id").First(&household, *householdID).Error; err != nil {
		return notFoundAs(err, ErrHouseholdNotFound)
	}
	if household.BuildingID == nil || *household.BuildingID != buildingID {
		return invalidParam("household does not belong to this building")
	}
	return nil
}

// 1 ListDoorbells 列出楼栋门铃
func (s *DoorbellService) ListDoorbells(actorID, buildingID uint) ([]models.DoorBell, error) {
	var building models.Building
	if err := s.DB.Select("id").First(&building, buildingID).Error; err != nil {
		return nil, notFoundAs(err, ErrBuildingNotFound)
	}
	if !s.canViewBuilding(actorID, buildingID) {
		return nil, ErrForbidden
	}
	var list []models.DoorBell
	err := s.DB.Preload("Household").Where("building_id = ?", buildingID).Order("door_bell_number ASC").Find(&list).Error
	return list, err
}

// 2 CreateDoorbell 创建门铃，编号楼栋内唯一
func (s *DoorbellService) CreateDoorbell(actorID, buildingID uint, req *DoorbellRequest) (*models.DoorBell, error) {
	var building models.Building
	if err := s.DB.Select("id").First(&building, buildingID).Error; err != nil {
		return nil, notFoundAs(err, ErrBuildingNotFound)
	}
	if !s.Permissions.CanManageBuilding(actorID, buildingID) {
		return nil, ErrForbidden
	}
	number := strings.TrimSpace(req.DoorBellNumber)
	if number == "" {
		return nil, invalidParam("door_bell_number is required")
	}
	if err := s.checkHousehold(buildingID, req.HouseholdID); err != nil {
		return nil, err
	}

	bell := &models.DoorBell{
		BuildingID:     buildingID,
		DoorBellNumber: number,
		HouseholdID:    req.HouseholdID,
		Description:    req.Description,
		IsEnabled:      true,
	}
	if req.IsEnabled != nil {
		bell.IsEnabled = *req.IsEnabled
	}
	if err := s.DB.Omit("Household").Create(bell).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDoorbellAlreadyExist
		}
		return nil, err
	}
	return bell, nil
}

func (s *DoorbellService) loadBell(actorID, id uint) (*models.DoorBell, error) {
	var bell models.DoorBell
	if err := s.DB.First(&bell, id).Error; err != nil {
		return nil, notFoundAs(err, ErrDoorbellNotFound)
	}
	if !s.Permissions.CanManageBuilding(actorID, bell.BuildingID) {
		return nil, ErrForbidden
	}
	return &bell, nil
}

// 3 UpdateDoorbell 更新门铃
func (s *DoorbellService) UpdateDoorbell(actorID, id uint, req *DoorbellRequest) (*models.DoorBell, error) {
	bell, err := s.loadBell(actorID, id)
	if err != nil {
		return nil, err
	}
	if number := strings.TrimSpace(req.DoorBellNumber); number != "" {
		bell.DoorBellNumber = number
	}
	if req.HouseholdID != nil {
		if *req.HouseholdID == 0 {
			bell.HouseholdID = nil
		} else {
			if err := s.checkHousehold(bell.BuildingID, req.HouseholdID); err != nil {
				return nil, err
			}
			bell.HouseholdID = req.HouseholdID
		}
	}
	bell.Description = req.Description
	if req.IsEnabled != nil {
		bell.IsEnabled = *req.IsEnabled
	}
	if err := s.DB.Omit("Household").Save(bell).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDoorbellAlreadyExist
		}
		return nil, err
	}
	return bell, nil
}

// 4 DeleteDoorbell 删除门铃
func (s *DoorbellService) DeleteDoorbell(actorID, id uint) error {
	if _, err := s.loadBell(actorID, id); err != nil {
		return err
	}
	return s.DB.Delete(&models.DoorBell{}, id).Error
}

// findBell 按 ID 或编号查找并校验楼栋、启用状态与住户绑定
func (s *DoorbellService) findBell(buildingID uint, req *RingRequest) (*models.DoorBell, error) {
	var bell models.DoorBell
	var err error
	switch {
	case req.DoorBellID != 0:
		err = s.DB.First(&bell, req.DoorBellID).Error
	case strings.TrimSpace(req.DoorBellNumber) != "":
		err = s.DB.Where("building_id = ? AND door_bell_number = ?", buildingID, strings.TrimSpace(req.DoorBellNumber)).First(&bell).Error
	default:
		return nil, invalidParam("door_bell_number or door_bell_id is required")
	}
	if err != nil {
		return nil, notFoundAs(err, ErrDoorbellNotFound)
	}
	if bell.BuildingID != buildingID {
		return nil, ErrDoorbellWrongBuilding
	}
	if !bell.IsEnabled {
		return nil, ErrDoorbellDisabled
	}
	if bell.HouseholdID == nil {
		return nil, ErrDoorbellNoHousehold
	}
	return &bell, nil
}

// recentSession 去重窗口内该门铃最近的会话
func (s *DoorbellService) recentSession(bellID uint, since time.Time) (*models.DoorBellCallSession, error) {
	var session models.DoorBellCallSession
	err := s.DB.Where("door_bell_id = ? AND started_at >= ?", bellID, since).Order("id DESC").First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// acquireRing 返回 false 表示窗口内已有按铃；Redis 不可用时按 lastRungAt 判断
func (s *DoorbellService) acquireRing(bell *models.DoorBell, now time.Time) bool {
	window := s.dedupeWindow()
	if s.Redis != nil {
		ok, err := s.Redis.SetNX(ringDedupeKey(bell.ID), now.UnixNano(), window)
		if err == nil {
			return ok
		}
		logger.Named("doorbell").Warn("ring dedupe via redis failed", zap.Uint("door_bell_id", bell.ID), zap.Error(err))
	}
	return bell.LastRungAt == nil || now.Sub(*bell.LastRungAt) >= window
}

// 5 Ring 按门铃：创建 ringing 会话，通知住户成员并发布 MQTT 事件
func (s *DoorbellService) Ring(actorID, buildingID uint, req *RingRequest) (*RingResult, error) {
	bell, err := s.findBell(buildingID, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !s.acquireRing(bell, now) {
		session, err := s.recentSession(bell.ID, now.Add(-s.dedupeWindow()))
		if err == nil {
			metrics.RecordDoorbellRing(true)
			return &RingResult{Session: session, Deduplicated: true}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	session := &models.DoorBellCallSession{
		DoorBellID:  bell.ID,
		BuildingID:  bell.BuildingID,
		HouseholdID: bell.HouseholdID,
		Status:      models.CallStatusRinging,
		StartedAt:   now,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("DoorBell").Create(session).Error; err != nil {
			return err
		}
		return tx.Model(&models.DoorBell{}).Where("id = ?", bell.ID).Update("last_rung_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordDoorbellRing(false)

	var members []uint
	s.DB.Model(&models.HouseholdMember{}).Where("household_id = ?", *bell.HouseholdID).Pluck("user_id", &members)
	s.notify(members, NotificationInput{
		Type:        models.NotificationDoorBellRung,
		Title:       "Doorbell " + bell.DoorBellNumber,
		Message:     "Someone is at the door",
		RelatedType: "doorbell_call",
		RelatedID:   uintPtr(session.ID),
	})
	s.publish(DoorbellRingTopic(bell.BuildingID), ringEvent{
		SessionID:      session.ID,
		DoorBellID:     bell.ID,
		DoorBellNumber: bell.DoorBellNumber,
		HouseholdID:    bell.HouseholdID,
		StartedAt:      now,
	})
	return &RingResult{Session: session}, nil
}

// canHandleCall 住户成员；已转前台后前台成员也可处理
func (s *DoorbellService) canHandleCall(actorID uint, session *models.DoorBellCallSession) bool {
	if session.HouseholdID != nil && s.Permissions.HouseholdRole(actorID, *session.HouseholdID) != "" {
		return true
	}
	if session.RoutedToFrontDesk && s.Permissions.IsFrontDeskForBuilding(actorID, session.BuildingID) {
		return true
	}
	return s.Permissions.IsSuperAdmin(actorID)
}

// 6 GetCall 获取门铃通话
func (s *DoorbellService) GetCall(actorID, id uint) (*models.DoorBellCallSession, error) {
	var session models.DoorBellCallSession
	if err := s.DB.Preload("DoorBell").First(&session, id).Error; err != nil {
		return nil, notFoundAs(err, ErrCallNotFound)
	}
	if !s.canHandleCall(actorID, &session) && !s.canViewBuilding(actorID, session.BuildingID) {
		return nil, ErrForbidden
	}
	return &session, nil
}

// 7 UpdateCall 接听/拒绝/结束门铃通话，unlock 时下发开门指令并记录访问日志
func (s *DoorbellService) UpdateCall(actorID, id uint, req *DoorbellCallAction) (*models.DoorBellCallSession, error) {
	var session models.DoorBellCallSession
	if err := s.DB.First(&session, id).Error; err != nil {
		return nil, notFoundAs(err, ErrCallNotFound)
	}
	if !s.canHandleCall(actorID, &session) {
		return nil, ErrForbidden
	}

	now := s.now()
	switch req.Action {
	case CallActionAnswer:
		if session.Status != models.CallStatusRinging {
			return nil, ErrCallInvalidState
		}
		session.Status = models.CallStatusAnswered
		session.AnsweredAt = &now
		session.AnsweredByID = uintPtr(actorID)
	case CallActionReject:
		if session.Status != models.CallStatusRinging {
			return nil, ErrCallInvalidState
		}
		if req.Unlock {
			return nil, invalidParam("cannot unlock a rejected call")
		}
		session.Status = models.CallStatusRejected
		session.EndedAt = &now
	case CallActionEnd:
		if session.Status != models.CallStatusRinging && session.Status != models.CallStatusAnswered {
			return nil, ErrCallInvalidState
		}
		session.Status = models.CallStatusEnded
		session.EndedAt = &now
	default:
		return nil, invalidParam("action must be answer, reject or end")
	}

	if err := s.DB.Omit("DoorBell").Save(&session).Error; err != nil {
		return nil, err
	}
	if req.Unlock {
		if err := s.unlock(actorID, &session, now); err != nil {
			return &session, err
		}
	}
	return &session, nil
}

// unlock 发布开门指令；无论成功与否均写入访问日志
func (s *DoorbellService) unlock(actorID uint, session *models.DoorBellCallSession, now time.Time) error {
	entry := models.DoorAccessLog{
		DoorBellID: session.DoorBellID,
		SessionID:  uintPtr(session.ID),
		UserID:     actorID,
		Result:     models.AccessResultSuccess,
		Method:     models.AccessMethodRemote,
		Timestamp:  now,
	}

	var publishErr error
	if s.Broker == nil || !s.Broker.IsConnected() {
		publishErr = fmt.Errorf("%w: mqtt broker", ErrUnavailable)
	} else {
		publishErr = s.Broker.PublishJSON(DoorbellUnlockTopic(session.BuildingID, session.DoorBellID), map[string]interface{}{
			"session_id": session.ID,
			"user_id":    actorID,
			"timestamp":  now,
		})
		if publishErr != nil {
			publishErr = fmt.Errorf("%w: %v", ErrUnavailable, publishErr)
		}
	}
	if publishErr != nil {
		entry.Result = models.AccessResultFailure
	}

	if err := s.DB.Create(&entry).Error; err != nil {
		logger.Named("doorbell").Error("write door access log failed", zap.Uint("session_id", session.ID), zap.Error(err))
	}
	if publishErr != nil {
		return publishErr
	}
	session.DoorUnlocked = true
	return s.DB.Model(session).Update("door_unlocked", true).Error
}

// 8 ListCalls 楼栋门铃通话，activeOnly 只返回 ringing/answered
func (s *DoorbellService) ListCalls(actorID, buildingID uint, activeOnly bool) ([]models.DoorBellCallSession, error) {
	var building models.Building
	if err := s.DB.Select("id").First(&building, buildingID).Error; err != nil {
		return nil, notFoundAs(err, ErrBuildingNotFound)
	}
	if !s.canViewBuilding(actorID, buildingID) {
		return nil, ErrForbidden
	}
	query := s.DB.Preload("DoorBell").Where("building_id = ?", buildingID)
	if activeOnly {
		query = query.Where("status IN ?", []string{models.CallStatusRinging, models.CallStatusAnswered})
	}
	var list []models.DoorBellCallSession
	err := query.Order("id DESC").Limit(100).Find(&list).Error
	return list, err
}

// 9 RouteTimedOutCalls 将超时仍在响铃的会话转给前台，返回转接数量
func (s *DoorbellService) RouteTimedOutCalls(now time.Time) (int, error) {
	var sessions []models.DoorBellCallSession
	err := s.DB.Where("status = ? AND routed_to_front_desk = ?", models.CallStatusRinging, false).
		Order("id ASC").Find(&sessions).Error
	if err != nil {
		return 0, err
	}

	buildings := make(map[uint]*models.Building)
	routed := 0
	for i := range sessions {
		session := &sessions[i]
		building, ok := buildings[session.BuildingID]
		if !ok {
			var b models.Building
			if err := s.DB.Select("id", "community_id", "doorbell_timeout_seconds").First(&b, session.BuildingID).Error; err != nil {
				buildings[session.BuildingID] = nil
				continue
			}
			building = &b
			buildings[session.BuildingID] = building
		}
		if building == nil {
			continue
		}
		timeout := time.Duration(building.EffectiveDoorbellTimeout()) * time.Second
		if now.Sub(session.StartedAt) < timeout {
			continue
		}

		res := s.DB.Model(&models.DoorBellCallSession{}).
			Where("id = ? AND status = ? AND routed_to_front_desk = ?", session.ID, models.CallStatusRinging, false).
			Updates(map[string]interface{}{"routed_to_front_desk": true, "routed_at": now})
		if res.Error != nil {
			return routed, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		routed++

		members, err := frontDeskMembers(s.DB, building.CommunityID, building.ID)
		if err != nil {
			logger.Named("doorbell").Warn("load front desk members failed", zap.Uint("building_id", building.ID), zap.Error(err))
			continue
		}
		s.notify(members, NotificationInput{
			Type:        models.NotificationDoorBellRung,
			Title:       "Unanswered doorbell",
			Message:     "A doorbell call was not answered and has been routed to the front desk",
			RelatedType: "doorbell_call",
			RelatedID:   uintPtr(session.ID),
		})
	}
	if routed > 0 {
		metrics.RecordDoorbellRouted(routed)
		logger.Named("doorbell").Info("routed doorbell calls to front desk", zap.Int("count", routed))
	}
	return routed, nil
}

func (s *DoorbellService) notify(userIDs []uint, input NotificationInput) {
	if s.Notifications == nil || len(userIDs) == 0 {
		return
	}
	if _, err := s.Notifications.Notify(userIDs, input); err != nil {
		logger.Named("doorbell").Warn("notification failed", zap.String("type", input.Type), zap.Error(err))
	}
}

func (s *DoorbellService) publish(topic string, v interface{}) {
	if s.Broker == nil || !s.Broker.IsConnected() {
		return
	}
	if err := s.Broker.PublishJSON(topic, v); err != nil {
		logger.Named("doorbell").Warn("publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
