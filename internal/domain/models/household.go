package models

// Household roles
const (
	HouseholdRoleOwner   = "OWNER"
	HouseholdRoleUser    = "USER"
	HouseholdRoleVisitor = "VISITOR"
)

// Household 住户单元
type Household struct {
	BaseModel
	Name           string `gorm:"type:varchar(100);not null" json:"name"`
	BuildingID     *uint  `gorm:"index" json:"building_id,omitempty"`
	UnitNumber     string `gorm:"type:varchar(50)" json:"unit_number"` // 如 "12F-3"
	Description    string `gorm:"type:text" json:"description"`
	InvitationCode string `gorm:"type:varchar(16);uniqueIndex" json:"invitation_code,omitempty"`

	Building *Building         `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
	Members  []HouseholdMember `gorm:"foreignKey:HouseholdID" json:"members,omitempty"`
}

// HouseholdMember links a user to a household with a role
type HouseholdMember struct {
	BaseModel
	HouseholdID uint   `gorm:"uniqueIndex:idx_household_user;not null" json:"household_id"`
	UserID      uint   `gorm:"uniqueIndex:idx_household_user;not null" json:"user_id"`
	Role        string `gorm:"type:varchar(20);not null" json:"role"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsValidHouseholdRole reports whether role is a known household role
func IsValidHouseholdRole(role string) bool {
	switch role {
	case HouseholdRoleOwner, HouseholdRoleUser, HouseholdRoleVisitor:
		return true
	}
	return false
}
