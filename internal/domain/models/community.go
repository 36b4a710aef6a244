package models

// Community roles
const (
	CommunityRoleAdmin   = "ADMIN"
	CommunityRoleManager = "MANAGER"
	CommunityRoleMember  = "MEMBER"
	CommunityRoleViewer  = "VIEWER"
)

// Community 社区，楼栋的上级组织
type Community struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Address     string `gorm:"type:varchar(255)" json:"address"`
	CreatedByID uint   `json:"created_by_id"`

	Buildings []Building        `gorm:"foreignKey:CommunityID" json:"buildings,omitempty"`
	Members   []CommunityMember `gorm:"foreignKey:CommunityID" json:"members,omitempty"`
}

// CommunityMember links a user to a community with a role
type CommunityMember struct {
	BaseModel
	CommunityID uint   `gorm:"uniqueIndex:idx_community_user;not null" json:"community_id"`
	UserID      uint   `gorm:"uniqueIndex:idx_community_user;not null" json:"user_id"`
	Role        string `gorm:"type:varchar(20);not null" json:"role"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsValidCommunityRole reports whether role is a known community role
func IsValidCommunityRole(role string) bool {
	switch role {
	case CommunityRoleAdmin, CommunityRoleManager, CommunityRoleMember, CommunityRoleViewer:
		return true
	}
	return false
}
