package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
)

// Call actions
const (
	CallActionAnswer = "answer"
	CallActionReject = "reject"
	CallActionEnd    = "end"
)

// InterfaceMessagingService 定义会话/消息/通话服务接口
type InterfaceMessagingService interface {
	ListConversations(actorID uint, p models.PaginationQuery) ([]models.Conversation, ListResult, error)
	CreateConversation(actorID uint, req *ConversationRequest) (*models.Conversation, error)
	GetConversation(actorID, id uint) (*models.Conversation, error)
	ListMessages(actorID, conversationID uint, p models.PaginationQuery) ([]models.Message, ListResult, error)
	SendMessage(actorID, conversationID uint, content string) (*models.Message, error)
	ListCalls(actorID, conversationID uint) ([]models.CallSession, error)
	StartCall(actorID, conversationID uint, callType string) (*CallResult, error)
	UpdateCall(actorID, conversationID, callID uint, action string) (*CallResult, error)
}

// ConversationRequest 创建会话请求
type ConversationRequest struct {
	HouseholdID uint   `json:"household_id" binding:"required"`
	BuildingID  *uint  `json:"building_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	RelatedID   *uint  `json:"related_id"`
}

// CallResult 通话会话及当前用户的 TRTC 凭证（未启用时为空）
type CallResult struct {
	Call *models.CallSession `json:"call"`
	RTC  *RTCCredentials     `json:"rtc,omitempty"`
}

// MessagingService 会话/消息/通话服务
type MessagingService struct {
	DB            *gorm.DB
	Config        *config.Config
	Permissions   InterfacePermissionService
	Notifications InterfaceNotificationService
	RTC           InterfaceRTCService
	now           func() time.Time
}

// NewMessagingService 创建会话服务
func NewMessagingService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, notifications InterfaceNotificationService, rtc InterfaceRTCService) InterfaceMessagingService {
	return &MessagingService{DB: db, Config: cfg, Permissions: perms, Notifications: notifications, RTC: rtc, now: time.Now}
}

func isValidConversationType(t string) bool {
	switch t {
	case models.ConversationGeneral, models.ConversationFrontDesk, models.ConversationMaintenance, models.ConversationDoorbell:
		return true
	}
	return false
}

// 1 ListConversations 我所在住户的会话，以及我可以联系的住户的会话
func (s *MessagingService) ListConversations(actorID uint, p models.PaginationQuery) ([]models.Conversation, ListResult, error) {
	query := s.DB.Model(&models.Conversation{}).Preload("Household")
	if !s.Permissions.IsSuperAdmin(actorID) {
		mine := s.DB.Model(&models.HouseholdMember{}).Select("household_id").Where("user_id = ?", actorID)
		managedBuildings := s.DB.Model(&models.BuildingMember{}).Select("building_id").
			Where("user_id = ? AND role IN ?", actorID, []string{models.BuildingRoleAdmin, models.BuildingRoleManager})
		managedCommunities := s.DB.Model(&models.CommunityMember{}).Select("community_id").
			Where("user_id = ? AND role IN ?", actorID, []string{models.CommunityRoleAdmin, models.CommunityRoleManager})
		frontDeskCommunities := s.DB.Model(&models.WorkingGroup{}).Select("community_id").
			Where("type = ? AND is_active = ? AND id IN (?)", models.WorkingGroupFrontDoorTeam, true,
				s.DB.Model(&models.WorkingGroupMember{}).Select("working_group_id").Where("user_id = ?", actorID))
		communityBuildings := s.DB.Model(&models.Building{}).Select("id").
			Where("community_id IN (?) OR community_id IN (?)", managedCommunities, frontDeskCommunities)

		query = query.Where(
			"household_id IN (?) OR building_id IN (?) OR building_id IN (?) OR created_by_id = ?",
			mine, managedBuildings, communityBuildings, actorID,
		)
	}
	var list []models.Conversation
	res, err := paginate(query, p, "last_message_at DESC, id DESC", &list)
	return list, res, err
}

// 2 CreateConversation 创建会话，需要 CanMessageHousehold
func (s *MessagingService) CreateConversation(actorID uint, req *ConversationRequest) (*models.Conversation, error) {
	var household models.Household
	if err := s.DB.Select("id", "name", "building_id").First(&household, req.HouseholdID).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}
	if !s.Permissions.CanMessageHousehold(actorID, req.HouseholdID) {
		return nil, ErrForbidden
	}
	convType := req.Type
	if convType == "" {
		convType = models.ConversationGeneral
	}
	if !isValidConversationType(convType) {
		return nil, invalidParam("invalid conversation type %q", convType)
	}
	buildingID := req.BuildingID
	if buildingID == nil {
		buildingID = household.BuildingID
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = household.Name
	}

	conv := &models.Conversation{
		HouseholdID: req.HouseholdID,
		BuildingID:  buildingID,
		Type:        convType,
		Title:       title,
		RelatedID:   req.RelatedID,
		CreatedByID: actorID,
		IsActive:    true,
	}
	if err := s.DB.Omit("Household").Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *MessagingService) load(actorID, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.DB.First(&conv, id).Error; err != nil {
		return nil, notFoundAs(err, ErrConversationNotFound)
	}
	if conv.CreatedByID != actorID && !s.Permissions.CanMessageHousehold(actorID, conv.HouseholdID) {
		return nil, ErrForbidden
	}
	return &conv, nil
}

// 3 GetConversation 获取会话
func (s *MessagingService) GetConversation(actorID, id uint) (*models.Conversation, error) {
	return s.load(actorID, id)
}

// 4 ListMessages 分页列出消息（新到旧）
func (s *MessagingService) ListMessages(actorID, conversationID uint, p models.PaginationQuery) ([]models.Message, ListResult, error) {
	if _, err := s.load(actorID, conversationID); err != nil {
		return nil, ListResult{}, err
	}
	query := s.DB.Model(&models.Message{}).Preload("Sender").Where("conversation_id = ?", conversationID)
	var list []models.Message
	res, err := paginate(query, p, "id DESC", &list)
	return list, res, err
}

// recipients 住户成员中除发送者以外的用户
func (s *MessagingService) recipients(conv *models.Conversation, senderID uint) []uint {
	var ids []uint
	s.DB.Model(&models.HouseholdMember{}).
		Where("household_id = ? AND user_id <> ?", conv.HouseholdID, senderID).
		Pluck("user_id", &ids)
	if conv.CreatedByID != senderID {
		ids = append(ids, conv.CreatedByID)
	}
	return ids
}

// postMessage 写入消息并刷新会话最后消息时间
func (s *MessagingService) postMessage(tx *gorm.DB, conv *models.Conversation, senderID uint, content, messageType string) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		MessageType:    messageType,
	}
	if err := tx.Omit("Sender").Create(msg).Error; err != nil {
		return nil, err
	}
	now := msg.CreatedAt
	if err := tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Update("last_message_at", now).Error; err != nil {
		return nil, err
	}
	conv.LastMessageAt = &now
	return msg, nil
}

// 5 SendMessage 发送消息并通知住户其他成员
func (s *MessagingService) SendMessage(actorID, conversationID uint, content string) (*models.Message, error) {
	conv, err := s.load(actorID, conversationID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidParam("content is required")
	}

	var msg *models.Message
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		msg, err = s.postMessage(tx, conv, actorID, content, models.MessageTypeText)
		return err
	})
	if err != nil {
		return nil, err
	}

	preview := content
	if r := []rune(preview); len(r) > 80 {
		preview = string(r[:80]) + "…"
	}
	s.notify(s.recipients(conv, actorID), NotificationInput{
		Type:        models.NotificationNewMessage,
		Title:       "New message: " + conv.Title,
		Message:     preview,
		RelatedType: "conversation",
		RelatedID:   uintPtr(conv.ID),
	})
	return msg, nil
}

// 6 ListCalls 会话内的通话记录
func (s *MessagingService) ListCalls(actorID, conversationID uint) ([]models.CallSession, error) {
	if _, err := s.load(actorID, conversationID); err != nil {
		return nil, err
	}
	var list []models.CallSession
	err := s.DB.Where("conversation_id = ?", conversationID).Order("id DESC").Limit(50).Find(&list).Error
	return list, err
}

func (s *MessagingService) credentials(userID uint) *RTCCredentials {
	if s.RTC == nil || !s.RTC.Enabled() {
		return nil
	}
	creds, err := s.RTC.GetUserSig(strconv.FormatUint(uint64(userID), 10))
	if err != nil {
		logger.Named("messaging").Warn("generate user sig failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil
	}
	return creds
}

// 7 StartCall 发起通话；会话中已有 ringing/answered 通话时返回 ErrCallOccupied
func (s *MessagingService) StartCall(actorID, conversationID uint, callType string) (*CallResult, error) {
	conv, err := s.load(actorID, conversationID)
	if err != nil {
		return nil, err
	}
	if callType == "" {
		callType = "audio"
	}
	if callType != "audio" && callType != "video" {
		return nil, invalidParam("call_type must be audio or video")
	}

	call := &models.CallSession{
		ConversationID: conv.ID,
		CallerID:       actorID,
		CallType:       callType,
		Status:         models.CallStatusRinging,
		RoomID:         uuid.NewString(),
		StartedAt:      s.now(),
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.CallSession{}).
			Where("conversation_id = ? AND status IN ?", conv.ID, []string{models.CallStatusRinging, models.CallStatusAnswered}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrCallOccupied
		}
		if err := tx.Create(call).Error; err != nil {
			return err
		}
		_, err := s.postMessage(tx, conv, actorID, fmt.Sprintf("%s call started", callType), models.MessageTypeCall)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(s.recipients(conv, actorID), NotificationInput{
		Type:        models.NotificationIncomingCall,
		Title:       "Incoming " + callType + " call",
		Message:     conv.Title,
		RelatedType: "call",
		RelatedID:   uintPtr(call.ID),
	})
	return &CallResult{Call: call, RTC: s.credentials(actorID)}, nil
}

// 8 UpdateCall 接听/拒绝只能在 ringing，结束可在 ringing/answered；时长以秒计
func (s *MessagingService) UpdateCall(actorID, conversationID, callID uint, action string) (*CallResult, error) {
	conv, err := s.load(actorID, conversationID)
	if err != nil {
		return nil, err
	}
	var call models.CallSession
	if err := s.DB.Where("id = ? AND conversation_id = ?", callID, conv.ID).First(&call).Error; err != nil {
		return nil, notFoundAs(err, ErrCallNotFound)
	}

	now := s.now()
	var note string
	switch action {
	case CallActionAnswer:
		if call.Status != models.CallStatusRinging {
			return nil, ErrCallInvalidState
		}
		call.Status = models.CallStatusAnswered
		call.AnsweredAt = &now
		call.AnsweredByID = uintPtr(actorID)
		note = "Call answered"
	case CallActionReject:
		if call.Status != models.CallStatusRinging {
			return nil, ErrCallInvalidState
		}
		call.Status = models.CallStatusRejected
		call.EndedAt = &now
		note = "Call rejected"
	case CallActionEnd:
		if call.Status != models.CallStatusRinging && call.Status != models.CallStatusAnswered {
			return nil, ErrCallInvalidState
		}
		from := call.StartedAt
		if call.AnsweredAt != nil {
			from = *call.AnsweredAt
		}
		duration := int(now.Sub(from) / time.Second)
		if duration < 0 {
			duration = 0
		}
		call.Status = models.CallStatusEnded
		call.EndedAt = &now
		call.Duration = &duration
		note = fmt.Sprintf("Call ended (%ds)", duration)
	default:
		return nil, invalidParam("action must be answer, reject or end")
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&call).Error; err != nil {
			return err
		}
		_, err := s.postMessage(tx, conv, actorID, note, models.MessageTypeSystem)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &CallResult{Call: &call}
	if action == CallActionAnswer {
		result.RTC = s.credentials(actorID)
	}
	return result, nil
}

func (s *MessagingService) notify(userIDs []uint, input NotificationInput) {
	if s.Notifications == nil {
		return
	}
	if _, err := s.Notifications.Notify(userIDs, input); err != nil {
		logger.Named("messaging").Warn("notification failed", zap.String("type", input.Type), zap.Error(err))
	}
}
