package models

// Building roles
const (
	BuildingRoleAdmin   = "ADMIN"
	BuildingRoleManager = "MANAGER"
	BuildingRoleMember  = "MEMBER"
)

// DefaultDoorbellTimeoutSeconds applies when a building has no timeout configured
const DefaultDoorbellTimeoutSeconds = 30

// Building 楼栋
type Building struct {
	BaseModel
	CommunityID            uint   `gorm:"index;not null" json:"community_id"`
	Name                   string `gorm:"type:varchar(100);not null" json:"name"`
	Address                string `gorm:"type:varchar(255)" json:"address"`
	Floors                 int    `json:"floors"`
	Description            string `gorm:"type:text" json:"description"`
	DoorbellTimeoutSeconds int    `gorm:"default:30" json:"doorbell_timeout_seconds"`

	Community  *Community  `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	Households []Household `gorm:"foreignKey:BuildingID" json:"households,omitempty"`
}

// EffectiveDoorbellTimeout returns the configured timeout or the default when unset
func (b *Building) EffectiveDoorbellTimeout() int {
	if b.DoorbellTimeoutSeconds <= 0 {
		return DefaultDoorbellTimeoutSeconds
	}
	return b.DoorbellTimeoutSeconds
}

// BuildingMember links a user to a building with a role
type BuildingMember struct {
	BaseModel
	BuildingID uint   `gorm:"uniqueIndex:idx_building_user;not null" json:"building_id"`
	UserID     uint   `gorm:"uniqueIndex:idx_building_user;not null" json:"user_id"`
	Role       string `gorm:"type:varchar(20);not null" json:"role"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsValidBuildingRole reports whether role is a known building role
func IsValidBuildingRole(role string) bool {
	switch role {
	case BuildingRoleAdmin, BuildingRoleManager, BuildingRoleMember:
		return true
	}
	return false
}
