package models

import (
	"time"
)

// AccessResult represents the result of an access attempt
type AccessResult string

const (
	AccessResultSuccess AccessResult = "success"
	AccessResultFailure AccessResult = "failure"
)

// AccessMethod represents the method used for access
type AccessMethod string

const (
	AccessMethodRemote AccessMethod = "remote"
)

// DoorAccessLog records every remote unlock issued from a doorbell call
type DoorAccessLog struct {
	BaseModel
	DoorBellID uint         `gorm:"index" json:"door_bell_id"`
	SessionID  *uint        `json:"session_id,omitempty"`
	UserID     uint         `json:"user_id"`
	Result     AccessResult `gorm:"type:varchar(20)" json:"result"`
	Method     AccessMethod `gorm:"type:varchar(20)" json:"method"`
	Timestamp  time.Time    `json:"timestamp"`
}
