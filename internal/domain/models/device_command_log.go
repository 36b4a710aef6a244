package models

import (
	"time"
)

// DeviceCommandLog 表示设备控制日志
type DeviceCommandLog struct {
	BaseModel
	DeviceID     uint      `gorm:"index" json:"device_id"`
	UserID       uint      `json:"user_id"` // 执行操作的用户ID，0表示系统自动操作
	Action       string    `gorm:"type:varchar(50);not null" json:"action"`
	Payload      string    `gorm:"type:text" json:"payload"`
	Success      bool      `json:"success"`
	ErrorMessage string    `gorm:"type:varchar(255)" json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
