package models

import (
	"time"
)

// Notification types
const (
	NotificationDoorBellRung   = "DOOR_BELL_RUNG"
	NotificationLowInventory   = "LOW_INVENTORY"
	NotificationNewMessage     = "NEW_MESSAGE"
	NotificationIncomingCall   = "INCOMING_CALL"
	NotificationTicketUpdate   = "TICKET_UPDATE"
	NotificationWorkflowUpdate = "WORKFLOW_UPDATE"
	NotificationCateringOrder  = "CATERING_ORDER"
	NotificationJoinRequest    = "JOIN_REQUEST"
)

// Notification 用户站内通知
type Notification struct {
	BaseModel
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	Type        string     `gorm:"type:varchar(30);not null" json:"type"`
	Title       string     `gorm:"type:varchar(150);not null" json:"title"`
	Message     string     `gorm:"type:text" json:"message"`
	RelatedType string     `gorm:"type:varchar(30)" json:"related_type,omitempty"` // 如: doorbell_call, item, ticket
	RelatedID   *uint      `json:"related_id,omitempty"`
	IsRead      bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
