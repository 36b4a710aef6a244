package services

import (
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
)

// 能力标识
const (
	CapView                = "view"
	CapManageCommunity     = "manage_community"
	CapManageBuildings     = "manage_buildings"
	CapManageMembers       = "manage_members"
	CapManageWorkingGroups = "manage_working_groups"
	CapManageItems         = "manage_items"
	CapControlDevices      = "control_devices"
	CapManageDevices       = "manage_devices"
)

var communityCapabilities = map[string][]string{
	models.CommunityRoleAdmin:   {CapView, CapManageCommunity, CapManageBuildings, CapManageMembers, CapManageWorkingGroups},
	models.CommunityRoleManager: {CapView, CapManageBuildings, CapManageMembers, CapManageWorkingGroups},
	models.CommunityRoleMember:  {CapView},
	models.CommunityRoleViewer:  {CapView},
}

var householdCapabilities = map[string][]string{
	models.HouseholdRoleOwner:   {CapView, CapManageMembers, CapManageItems, CapControlDevices, CapManageDevices},
	models.HouseholdRoleUser:    {CapView, CapManageItems, CapControlDevices},
	models.HouseholdRoleVisitor: {CapView},
}

// 角色等级，同一体系内比较
var roleRank = map[string]int{
	models.CommunityRoleAdmin:   4,
	models.CommunityRoleManager: 3,
	models.CommunityRoleMember:  2,
	models.CommunityRoleViewer:  1,
	models.HouseholdRoleOwner:   3,
	models.HouseholdRoleUser:    2,
	models.HouseholdRoleVisitor: 1,
}

// CommunityPermissions returns the capabilities granted by a community role
func CommunityPermissions(role string) []string {
	return communityCapabilities[role]
}

// HouseholdPermissions returns the capabilities granted by a household role
func HouseholdPermissions(role string) []string {
	return householdCapabilities[role]
}

// HasCapability reports whether caps contains capability
func HasCapability(caps []string, capability string) bool {
	for _, c := range caps {
		if c == capability {
			return true
		}
	}
	return false
}

// CanAssignRole reports whether a member holding managerRole may grant targetRole.
// Only OWNER and ADMIN assign roles, and never one ranked above their own.
func CanAssignRole(managerRole, targetRole string) bool {
	switch managerRole {
	case models.HouseholdRoleOwner:
		if !models.IsValidHouseholdRole(targetRole) {
			return false
		}
	case models.CommunityRoleAdmin:
		if !models.IsValidCommunityRole(targetRole) && !models.IsValidBuildingRole(targetRole) {
			return false
		}
	default:
		return false
	}
	return roleRank[targetRole] <= roleRank[managerRole]
}

func isManagerRole(role string) bool {
	return role == models.CommunityRoleAdmin || role == models.CommunityRoleManager
}

// InterfacePermissionService 定义权限服务接口
type InterfacePermissionService interface {
	IsSuperAdmin(userID uint) bool
	CommunityRole(userID, communityID uint) string
	BuildingRole(userID, buildingID uint) string
	HouseholdRole(userID, householdID uint) string
	CanViewCommunity(userID, communityID uint) bool
	CanManageCommunity(userID, communityID uint) bool
	CanManageBuilding(userID, buildingID uint) bool
	CanAccessHousehold(userID, householdID uint) bool
	CanManageHousehold(userID, householdID uint) bool
	IsWorkingGroupMember(userID, groupID uint) bool
	IsWorkingGroupLeader(userID, groupID uint) bool
	IsFrontDeskForBuilding(userID, buildingID uint) bool
	IsFrontDeskMember(userID, communityID uint) bool
	CanMessageHousehold(userID, householdID uint) bool
}

// PermissionService 权限服务，所有检查均直接查询成员表
type PermissionService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewPermissionService 创建权限服务
func NewPermissionService(db *gorm.DB, cfg *config.Config) InterfacePermissionService {
	return &PermissionService{DB: db, Config: cfg}
}

// 1 IsSuperAdmin 是否超级管理员
func (s *PermissionService) IsSuperAdmin(userID uint) bool {
	var user models.User
	if err := s.DB.Select("id", "is_admin").First(&user, userID).Error; err != nil {
		return false
	}
	return user.IsAdmin
}

func (s *PermissionService) roleOf(model interface{}, column string, userID, scopeID uint) string {
	var roles []string
	s.DB.Model(model).
		Where("user_id = ? AND "+column+" = ?", userID, scopeID).
		Limit(1).
		Pluck("role", &roles)
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}

// 2 CommunityRole 社区角色，非成员返回空字符串
func (s *PermissionService) CommunityRole(userID, communityID uint) string {
	return s.roleOf(&models.CommunityMember{}, "community_id", userID, communityID)
}

// 3 BuildingRole 楼栋角色
func (s *PermissionService) BuildingRole(userID, buildingID uint) string {
	return s.roleOf(&models.BuildingMember{}, "building_id", userID, buildingID)
}

// 4 HouseholdRole 住户角色
func (s *PermissionService) HouseholdRole(userID, householdID uint) string {
	return s.roleOf(&models.HouseholdMember{}, "household_id", userID, householdID)
}

// 5 CanViewCommunity 社区任意成员或超级管理员
func (s *PermissionService) CanViewCommunity(userID, communityID uint) bool {
	return s.IsSuperAdmin(userID) || s.CommunityRole(userID, communityID) != ""
}

// 6 CanManageCommunity 社区 ADMIN/MANAGER 或超级管理员
func (s *PermissionService) CanManageCommunity(userID, communityID uint) bool {
	if s.IsSuperAdmin(userID) {
		return true
	}
	return isManagerRole(s.CommunityRole(userID, communityID))
}

// 7 CanManageBuilding 楼栋 ADMIN/MANAGER，或所属社区 ADMIN/MANAGER
func (s *PermissionService) CanManageBuilding(userID, buildingID uint) bool {
	if s.IsSuperAdmin(userID) {
		return true
	}
	if isManagerRole(s.BuildingRole(userID, buildingID)) {
		return true
	}
	var building models.Building
	if err := s.DB.Select("id", "community_id").First(&building, buildingID).Error; err != nil {
		return false
	}
	return isManagerRole(s.CommunityRole(userID, building.CommunityID))
}

func (s *PermissionService) householdBuilding(householdID uint) *uint {
	var household models.Household
	if err := s.DB.Select("id", "building_id").First(&household, householdID).Error; err != nil {
		return nil
	}
	return household.BuildingID
}

// 8 CanAccessHousehold 住户成员，或可管理其楼栋者
func (s *PermissionService) CanAccessHousehold(userID, householdID uint) bool {
	if s.HouseholdRole(userID, householdID) != "" {
		return true
	}
	if s.IsSuperAdmin(userID) {
		return true
	}
	if b := s.householdBuilding(householdID); b != nil {
		return s.CanManageBuilding(userID, *b)
	}
	return false
}

// 9 CanManageHousehold OWNER 或楼栋管理者
func (s *PermissionService) CanManageHousehold(userID, householdID uint) bool {
	if s.HouseholdRole(userID, householdID) == models.HouseholdRoleOwner {
		return true
	}
	if s.IsSuperAdmin(userID) {
		return true
	}
	if b := s.householdBuilding(householdID); b != nil {
		return s.CanManageBuilding(userID, *b)
	}
	return false
}

// 10 IsWorkingGroupMember 是否工作组成员
func (s *PermissionService) IsWorkingGroupMember(userID, groupID uint) bool {
	var count int64
	s.DB.Model(&models.WorkingGroupMember{}).
		Where("user_id = ? AND working_group_id = ?", userID, groupID).
		Count(&count)
	return count > 0
}

// 11 IsWorkingGroupLeader 是否工作组组长
func (s *PermissionService) IsWorkingGroupLeader(userID, groupID uint) bool {
	var count int64
	s.DB.Model(&models.WorkingGroupMember{}).
		Where("user_id = ? AND working_group_id = ? AND role = ?", userID, groupID, models.WorkingGroupRoleLeader).
		Count(&count)
	return count > 0
}

// 12 IsFrontDeskForBuilding 是否为覆盖该楼栋的前台工作组成员
func (s *PermissionService) IsFrontDeskForBuilding(userID, buildingID uint) bool {
	var building models.Building
	if err := s.DB.Select("id", "community_id").First(&building, buildingID).Error; err != nil {
		return false
	}
	members, err := frontDeskMembers(s.DB, building.CommunityID, buildingID)
	if err != nil {
		return false
	}
	return containsUint(members, userID)
}

// 13 IsFrontDeskMember 是否为社区内启用的前台工作组成员，不看楼栋授权范围
func (s *PermissionService) IsFrontDeskMember(userID, communityID uint) bool {
	var count int64
	s.DB.Model(&models.WorkingGroupMember{}).
		Joins("JOIN working_groups ON working_groups.id = working_group_members.working_group_id").
		Where("working_group_members.user_id = ? AND working_groups.community_id = ? AND working_groups.type = ? AND working_groups.is_active = ?",
			userID, communityID, models.WorkingGroupFrontDoorTeam, true).
		Count(&count)
	return count > 0
}

// 14 CanMessageHousehold 超级管理员、住户成员、楼栋/社区管理者或社区前台成员
func (s *PermissionService) CanMessageHousehold(userID, householdID uint) bool {
	if s.HouseholdRole(userID, householdID) != "" || s.IsSuperAdmin(userID) {
		return true
	}
	b := s.householdBuilding(householdID)
	if b == nil {
		return false
	}
	if s.CanManageBuilding(userID, *b) {
		return true
	}
	var building models.Building
	if err := s.DB.Select("id", "community_id").First(&building, *b).Error; err != nil {
		return false
	}
	return s.IsFrontDeskMember(userID, building.CommunityID)
}

// frontDeskMembers returns the de-duplicated user ids of active FRONT_DOOR_TEAM
// groups in the community whose permissions cover the building
func frontDeskMembers(db *gorm.DB, communityID, buildingID uint) ([]uint, error) {
	var groups []models.WorkingGroup
	err := db.Preload("Permissions").Preload("Members").
		Where("community_id = ? AND type = ? AND is_active = ?", communityID, models.WorkingGroupFrontDoorTeam, true).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}

	var ids []uint
	for _, g := range groups {
		covered := false
		for _, p := range g.Permissions {
			if p.CoversBuilding(buildingID) {
				covered = true
				break
			}
		}
		if !covered {
			continue
		}
		for _, m := range g.Members {
			ids = append(ids, m.UserID)
		}
	}
	return uniqueUints(ids), nil
}
