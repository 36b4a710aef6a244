package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
	"estatehub-http-service/internal/infrastructure/metrics"
)

// NotificationTopic 用户通知推送主题
func NotificationTopic(userID uint) string {
	return fmt.Sprintf("estatehub/notifications/%d", userID)
}

// InterfaceNotificationService 定义通知服务接口
type InterfaceNotificationService interface {
	Notify(userIDs []uint, input NotificationInput) ([]models.Notification, error)
	NotifyTx(tx *gorm.DB, userIDs []uint, input NotificationInput) ([]models.Notification, error)
	ListNotifications(userID uint, unreadOnly bool, p models.PaginationQuery) ([]models.Notification, ListResult, error)
	MarkRead(userID, id uint) (*models.Notification, error)
	MarkAllRead(userID uint) (int64, error)
	UnreadCount(userID uint) (int64, error)
}

// NotificationInput 通知内容
type NotificationInput struct {
	Type        string
	Title       string
	Message     string
	RelatedType string
	RelatedID   *uint
}

// NotificationService 通知服务；写库后通过 MQTT 推送
type NotificationService struct {
	DB     *gorm.DB
	Config *config.Config
	Broker MessageBroker
}

// NewNotificationService 创建通知服务，broker 可为 nil
func NewNotificationService(db *gorm.DB, cfg *config.Config, broker MessageBroker) InterfaceNotificationService {
	return &NotificationService{DB: db, Config: cfg, Broker: broker}
}

// 1 Notify 为每个用户创建通知（重复用户只通知一次）
func (s *NotificationService) Notify(userIDs []uint, input NotificationInput) ([]models.Notification, error) {
	list, err := s.NotifyTx(s.DB, userIDs, input)
	if err != nil {
		return nil, err
	}
	s.push(list)
	return list, nil
}

// 2 NotifyTx 在调用方事务内写入通知，不推送
func (s *NotificationService) NotifyTx(tx *gorm.DB, userIDs []uint, input NotificationInput) ([]models.Notification, error) {
	ids := uniqueUints(userIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	list := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		list = append(list, models.Notification{
			UserID:      id,
			Type:        input.Type,
			Title:       input.Title,
			Message:     input.Message,
			RelatedType: input.RelatedType,
			RelatedID:   input.RelatedID,
		})
	}
	if err := tx.Create(&list).Error; err != nil {
		return nil, err
	}
	metrics.RecordNotification(input.Type, len(list))
	return list, nil
}

// push 推送失败只记录日志
func (s *NotificationService) push(list []models.Notification) {
	if s.Broker == nil || !s.Broker.IsConnected() {
		return
	}
	for _, n := range list {
		if err := s.Broker.PublishJSON(NotificationTopic(n.UserID), n); err != nil {
			logger.Named("notifications").Warn("push notification failed",
				zap.Uint("user_id", n.UserID),
				zap.String("type", n.Type),
				zap.Error(err))
		}
	}
}

// 3 ListNotifications 列出我的通知，unreadOnly 只返回未读
func (s *NotificationService) ListNotifications(userID uint, unreadOnly bool, p models.PaginationQuery) ([]models.Notification, ListResult, error) {
	query := s.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var list []models.Notification
	res, err := paginate(query, p, "id DESC", &list)
	return list, res, err
}

// 4 MarkRead 标记单条已读
func (s *NotificationService) MarkRead(userID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, notFoundAs(err, ErrNotificationNotFound)
	}
	if n.IsRead {
		return &n, nil
	}
	now := time.Now()
	if err := s.DB.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &now
	return &n, nil
}

// 5 MarkAllRead 全部标记已读，返回更新条数
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	res := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}

// 6 UnreadCount 未读数量
func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, err
}
