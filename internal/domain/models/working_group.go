package models

// Working group types
const (
	WorkingGroupFrontDoorTeam = "FRONT_DOOR_TEAM"
	WorkingGroupMaintenance   = "MAINTENANCE"
	WorkingGroupCatering      = "CATERING"
	WorkingGroupSecurity      = "SECURITY"
	WorkingGroupGeneral       = "GENERAL"
)

// Working group member roles
const (
	WorkingGroupRoleLeader = "LEADER"
	WorkingGroupRoleMember = "MEMBER"
)

// Permission types a working group can hold
const (
	PermissionView            = "VIEW"
	PermissionEdit            = "EDIT"
	PermissionAdd             = "ADD"
	PermissionRemove          = "REMOVE"
	PermissionAddMember       = "ADD_MEMBER"
	PermissionRevokeMember    = "REVOKE_MEMBER"
	PermissionManageBuilding  = "MANAGE_BUILDING"
	PermissionManageHousehold = "MANAGE_HOUSEHOLD"
	PermissionViewReports     = "VIEW_REPORTS"
	PermissionManageSecurity  = "MANAGE_SECURITY"
)

// Permission scopes
const (
	ScopeAllBuildings      = "ALL_BUILDINGS"
	ScopeSpecificBuilding  = "SPECIFIC_BUILDING"
	ScopeSpecificHousehold = "SPECIFIC_HOUSEHOLD"
	ScopeAllHouseholds     = "ALL_HOUSEHOLDS"
)

// WorkingGroup 社区内的工作组（前台、维修、餐饮等）
type WorkingGroup struct {
	BaseModel
	CommunityID uint   `gorm:"index;not null" json:"community_id"`
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Type        string `gorm:"type:varchar(30);not null" json:"type"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `json:"is_active"`

	Members     []WorkingGroupMember     `gorm:"foreignKey:WorkingGroupID" json:"members,omitempty"`
	Permissions []WorkingGroupPermission `gorm:"foreignKey:WorkingGroupID" json:"permissions,omitempty"`
}

// WorkingGroupMember links a user to a working group
type WorkingGroupMember struct {
	BaseModel
	WorkingGroupID uint   `gorm:"uniqueIndex:idx_group_user;not null" json:"working_group_id"`
	UserID         uint   `gorm:"uniqueIndex:idx_group_user;not null" json:"user_id"`
	Role           string `gorm:"type:varchar(20);not null" json:"role"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// WorkingGroupPermission grants a permission over a scope. ScopeID is set for SPECIFIC_* scopes.
type WorkingGroupPermission struct {
	BaseModel
	WorkingGroupID uint   `gorm:"index;not null" json:"working_group_id"`
	Permission     string `gorm:"type:varchar(30);not null" json:"permission"`
	Scope          string `gorm:"type:varchar(30);not null" json:"scope"`
	ScopeID        *uint  `json:"scope_id,omitempty"`
}

// CoversBuilding reports whether the permission applies to the given building
func (p WorkingGroupPermission) CoversBuilding(buildingID uint) bool {
	switch p.Scope {
	case ScopeAllBuildings:
		return true
	case ScopeSpecificBuilding:
		return p.ScopeID != nil && *p.ScopeID == buildingID
	}
	return false
}

// IsValidWorkingGroupType reports whether t is a known group type
func IsValidWorkingGroupType(t string) bool {
	switch t {
	case WorkingGroupFrontDoorTeam, WorkingGroupMaintenance, WorkingGroupCatering, WorkingGroupSecurity, WorkingGroupGeneral:
		return true
	}
	return false
}

// IsValidPermission reports whether p is a known permission type
func IsValidPermission(p string) bool {
	switch p {
	case PermissionView, PermissionEdit, PermissionAdd, PermissionRemove, PermissionAddMember,
		PermissionRevokeMember, PermissionManageBuilding, PermissionManageHousehold,
		PermissionViewReports, PermissionManageSecurity:
		return true
	}
	return false
}

// IsValidScope reports whether s is a known scope
func IsValidScope(s string) bool {
	switch s {
	case ScopeAllBuildings, ScopeSpecificBuilding, ScopeSpecificHousehold, ScopeAllHouseholds:
		return true
	}
	return false
}
