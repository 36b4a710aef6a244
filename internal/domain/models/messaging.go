package models

import "time"

// Conversation types
const (
	ConversationGeneral     = "GENERAL"
	ConversationFrontDesk   = "FRONT_DESK"
	ConversationMaintenance = "MAINTENANCE"
	ConversationDoorbell    = "DOORBELL"
)

// Message types
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
	MessageTypeCall   = "call"
)

// Call session statuses, shared with doorbell calls
const (
	CallStatusRinging  = "ringing"
	CallStatusAnswered = "answered"
	CallStatusRejected = "rejected"
	CallStatusEnded    = "ended"
	CallStatusMissed   = "missed"
)

// Conversation 住户与管理方之间的会话
type Conversation struct {
	BaseModel
	HouseholdID   uint       `gorm:"index;not null" json:"household_id"`
	BuildingID    *uint      `gorm:"index" json:"building_id,omitempty"`
	Type          string     `gorm:"type:varchar(20);not null" json:"type"`
	Title         string     `gorm:"type:varchar(150)" json:"title"`
	RelatedID     *uint      `json:"related_id,omitempty"`
	CreatedByID   uint       `json:"created_by_id"`
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	IsActive      bool       `json:"is_active"`

	Household *Household `gorm:"foreignKey:HouseholdID" json:"household,omitempty"`
}

// Message 会话消息
type Message struct {
	BaseModel
	ConversationID uint   `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint   `json:"sender_id"`
	Content        string `gorm:"type:text;not null" json:"content"`
	MessageType    string `gorm:"type:varchar(20);not null" json:"message_type"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// CallSession is an audio/video call inside a conversation. Duration is in seconds.
type CallSession struct {
	BaseModel
	ConversationID uint       `gorm:"index;not null" json:"conversation_id"`
	CallerID       uint       `json:"caller_id"`
	CallType       string     `gorm:"type:varchar(10);not null" json:"call_type"` // audio, video
	Status         string     `gorm:"type:varchar(20);not null" json:"status"`
	RoomID         string     `gorm:"type:varchar(64);not null" json:"room_id"`
	AnsweredByID   *uint      `json:"answered_by_id,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Duration       *int       `json:"duration,omitempty"`
}
