package models

import "time"

// DoorBell 楼栋门铃，门铃编号在楼栋内唯一
type DoorBell struct {
	BaseModel
	BuildingID     uint       `gorm:"uniqueIndex:idx_building_doorbell;not null" json:"building_id"`
	DoorBellNumber string     `gorm:"type:varchar(20);uniqueIndex:idx_building_doorbell;not null" json:"door_bell_number"`
	HouseholdID    *uint      `gorm:"index" json:"household_id,omitempty"`
	Description    string     `gorm:"type:varchar(255)" json:"description"`
	IsEnabled      bool       `json:"is_enabled"`
	LastRungAt     *time.Time `json:"last_rung_at,omitempty"`

	Household *Household `gorm:"foreignKey:HouseholdID" json:"household,omitempty"`
}

// DoorBellCallSession tracks a ring from the moment it starts until it is answered,
// rejected, ended or routed to the front desk.
type DoorBellCallSession struct {
	BaseModel
	DoorBellID        uint       `gorm:"index;not null" json:"door_bell_id"`
	BuildingID        uint       `gorm:"index;not null" json:"building_id"`
	HouseholdID       *uint      `json:"household_id,omitempty"`
	Status            string     `gorm:"type:varchar(20);not null;index" json:"status"`
	StartedAt         time.Time  `gorm:"index" json:"started_at"`
	AnsweredAt        *time.Time `json:"answered_at,omitempty"`
	AnsweredByID      *uint      `json:"answered_by_id,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	RoutedToFrontDesk bool       `json:"routed_to_front_desk"`
	RoutedAt          *time.Time `json:"routed_at,omitempty"`
	DoorUnlocked      bool       `json:"door_unlocked"`

	DoorBell *DoorBell `gorm:"foreignKey:DoorBellID" json:"door_bell,omitempty"`
}
