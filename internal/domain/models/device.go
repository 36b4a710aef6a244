package models

import "time"

// DeviceStatus represents the reachability of an IoT device
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusUnknown DeviceStatus = "unknown"
)

// IoTDevice is a vendor device bound to a household. MQTT and REST devices share this table;
// Config holds the vendor-specific JSON (base_url, api_key, bridge_id ...).
type IoTDevice struct {
	BaseModel
	HouseholdID      uint         `gorm:"index;not null" json:"household_id"`
	Name             string       `gorm:"type:varchar(100);not null" json:"name"`
	Vendor           string       `gorm:"type:varchar(20);uniqueIndex:idx_vendor_external;not null" json:"vendor"`
	ExternalDeviceID string       `gorm:"type:varchar(100);uniqueIndex:idx_vendor_external;not null" json:"external_device_id"`
	ConnectionType   string       `gorm:"type:varchar(10);not null" json:"connection_type"` // mqtt, rest
	DeviceType       string       `gorm:"type:varchar(30)" json:"device_type"`
	Room             string       `gorm:"type:varchar(50)" json:"room"`
	Config           string       `gorm:"type:text" json:"config,omitempty"`
	State            string       `gorm:"type:text" json:"state,omitempty"`
	Status           DeviceStatus `gorm:"type:varchar(20);default:'unknown'" json:"status"`
	LastSeenAt       *time.Time   `json:"last_seen_at,omitempty"`
}
