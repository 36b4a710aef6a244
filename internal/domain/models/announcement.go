package models

import "time"

// Announcement sources
const (
	AnnouncementSourceSystem    = "SYSTEM"
	AnnouncementSourceCommunity = "COMMUNITY"
	AnnouncementSourceBuilding  = "BUILDING"
)

// Announcement targets
const (
	AnnouncementTargetAll       = "ALL_HOUSEHOLDS"
	AnnouncementTargetCommunity = "COMMUNITY"
	AnnouncementTargetBuilding  = "BUILDING"
	AnnouncementTargetHousehold = "SPECIFIC_HOUSEHOLD"
)

// Announcement 公告，由系统、社区或楼栋发布给住户
type Announcement struct {
	BaseModel
	Source      string     `gorm:"type:varchar(20);index;not null" json:"source"`
	SourceID    *uint      `gorm:"index" json:"source_id,omitempty"`
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	TargetType  string     `gorm:"type:varchar(30);index;not null" json:"target_type"`
	TargetID    *uint      `gorm:"index" json:"target_id,omitempty"`
	CreatedByID uint       `gorm:"not null" json:"created_by_id"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`

	IsRead bool `gorm:"-" json:"is_read"`
}

// AnnouncementRead records that a user read an announcement on behalf of a household
type AnnouncementRead struct {
	BaseModel
	AnnouncementID uint      `gorm:"uniqueIndex:idx_announcement_read;not null" json:"announcement_id"`
	UserID         uint      `gorm:"uniqueIndex:idx_announcement_read;not null" json:"user_id"`
	HouseholdID    uint      `gorm:"uniqueIndex:idx_announcement_read;not null" json:"household_id"`
	ReadAt         time.Time `json:"read_at"`
}

// IsValidAnnouncementSource reports whether source is a known announcement source
func IsValidAnnouncementSource(source string) bool {
	switch source {
	case AnnouncementSourceSystem, AnnouncementSourceCommunity, AnnouncementSourceBuilding:
		return true
	}
	return false
}

// IsValidAnnouncementTarget reports whether target is a known target type
func IsValidAnnouncementTarget(target string) bool {
	switch target {
	case AnnouncementTargetAll, AnnouncementTargetCommunity, AnnouncementTargetBuilding, AnnouncementTargetHousehold:
		return true
	}
	return false
}
