package services

import (
	"strings"

	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
)

// InterfaceWorkingGroupService 定义工作组服务接口
type InterfaceWorkingGroupService interface {
	ListGroups(actorID, communityID uint) ([]models.WorkingGroup, error)
	CreateGroup(actorID, communityID uint, req *WorkingGroupRequest) (*models.WorkingGroup, error)
	GetGroup(actorID, id uint) (*models.WorkingGroup, error)
	UpdateGroup(actorID, id uint, req *WorkingGroupRequest) (*models.WorkingGroup, error)
	DeleteGroup(actorID, id uint) error
	ListMembers(actorID, groupID uint) ([]models.WorkingGroupMember, error)
	AddMember(actorID, groupID uint, req *MemberRequest) (*models.WorkingGroupMember, error)
	RemoveMember(actorID, groupID, memberID uint) error
	ListPermissions(actorID, groupID uint) ([]models.WorkingGroupPermission, error)
	AddPermission(actorID, groupID uint, req *GroupPermissionRequest) (*models.WorkingGroupPermission, error)
	RemovePermission(actorID, groupID, permissionID uint) error
	InitializeDefaults(actorID, communityID uint) ([]models.WorkingGroup, error)
}

// WorkingGroupRequest 创建/更新工作组请求
type WorkingGroupRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// GroupPermissionRequest 工作组权限请求
type GroupPermissionRequest struct {
	Permission string `json:"permission"`
	Scope      string `json:"scope"`
	ScopeID    *uint  `json:"scope_id"`
}

type defaultGroup struct {
	name, groupType, description, permission, scope string
}

// 社区默认工作组
var defaultGroups = []defaultGroup{
	{"Front Desk", models.WorkingGroupFrontDoorTeam, "Receives doorbell calls routed from households", models.PermissionView, models.ScopeAllBuildings},
	{"Maintenance", models.WorkingGroupMaintenance, "Handles building maintenance tickets", models.PermissionManageBuilding, models.ScopeAllBuildings},
	{"Catering", models.WorkingGroupCatering, "Prepares catering orders", models.PermissionView, models.ScopeAllHouseholds},
	{"Security", models.WorkingGroupSecurity, "Building security team", models.PermissionManageSecurity, models.ScopeAllBuildings},
	{"General", models.WorkingGroupGeneral, "General community staff", models.PermissionView, models.ScopeAllBuildings},
}

// WorkingGroupService 工作组服务
type WorkingGroupService struct {
	DB          *gorm.DB
	Config      *config.Config
	Permissions InterfacePermissionService
}

// NewWorkingGroupService 创建工作组服务
func NewWorkingGroupService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService) InterfaceWorkingGroupService {
	return &WorkingGroupService{DB: db, Config: cfg, Permissions: perms}
}

func (s *WorkingGroupService) find(id uint) (*models.WorkingGroup, error) {
	var group models.WorkingGroup
	if err := s.DB.First(&group, id).Error; err != nil {
		return nil, notFoundAs(err, ErrWorkingGroupNotFound)
	}
	return &group, nil
}

func (s *WorkingGroupService) ensureCommunity(communityID uint) error {
	var community models.Community
	if err := s.DB.Select("id").First(&community, communityID).Error; err != nil {
		return notFoundAs(err, ErrCommunityNotFound)
	}
	return nil
}

// 1 ListGroups 列出社区工作组
func (s *WorkingGroupService) ListGroups(actorID, communityID uint) ([]models.WorkingGroup, error) {
	if err := s.ensureCommunity(communityID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanViewCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}
	var groups []models.WorkingGroup
	err := s.DB.Preload("Permissions").Where("community_id = ?", communityID).Order("id ASC").Find(&groups).Error
	return groups, err
}

// 2 CreateGroup 创建工作组
func (s *WorkingGroupService) CreateGroup(actorID, communityID uint, req *WorkingGroupRequest) (*models.WorkingGroup, error) {
	if err := s.ensureCommunity(communityID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}
	if !models.IsValidWorkingGroupType(req.Type) {
		return nil, invalidParam("invalid working group type %q", req.Type)
	}

	group := &models.WorkingGroup{
		CommunityID: communityID,
		Name:        name,
		Type:        req.Type,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.DB.Create(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// 3 GetGroup 获取工作组（含成员与权限）
func (s *WorkingGroupService) GetGroup(actorID, id uint) (*models.WorkingGroup, error) {
	group, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanViewCommunity(actorID, group.CommunityID) {
		return nil, ErrForbidden
	}
	if err := s.DB.Preload("Members.User").Preload("Permissions").First(group, id).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// 4 UpdateGroup 更新工作组
func (s *WorkingGroupService) UpdateGroup(actorID, id uint, req *WorkingGroupRequest) (*models.WorkingGroup, error) {
	group, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageCommunity(actorID, group.CommunityID) {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{"description": req.Description}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.Type != "" {
		if !models.IsValidWorkingGroupType(req.Type) {
			return nil, invalidParam("invalid working group type %q", req.Type)
		}
		updates["type"] = req.Type
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := s.DB.Model(group).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(id)
}

// 5 DeleteGroup 删除工作组及其成员与权限
func (s *WorkingGroupService) DeleteGroup(actorID, id uint) error {
	group, err := s.find(id)
	if err != nil {
		return err
	}
	if !s.Permissions.CanManageCommunity(actorID, group.CommunityID) {
		return ErrForbidden
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("working_group_id = ?", id).Delete(&models.WorkingGroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("working_group_id = ?", id).Delete(&models.WorkingGroupPermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.WorkingGroup{}, id).Error
	})
}

// 6 ListMembers 列出工作组成员
func (s *WorkingGroupService) ListMembers(actorID, groupID uint) ([]models.WorkingGroupMember, error) {
	group, err := s.find(groupID)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanViewCommunity(actorID, group.CommunityID) {
		return nil, ErrForbidden
	}
	var members []models.WorkingGroupMember
	err = s.DB.Preload("User").Where("working_group_id = ?", groupID).Order("id ASC").Find(&members).Error
	return members, err
}

// 7 AddMember 添加工作组成员，角色 LEADER 或 MEMBER
func (s *WorkingGroupService) AddMember(actorID, groupID uint, req *MemberRequest) (*models.WorkingGroupMember, error) {
	group, err := s.find(groupID)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageCommunity(actorID, group.CommunityID) {
		return nil, ErrForbidden
	}
	if req.Role == "" {
		req.Role = models.WorkingGroupRoleMember
	}
	if req.Role != models.WorkingGroupRoleLeader && req.Role != models.WorkingGroupRoleMember {
		return nil, invalidParam("role must be LEADER or MEMBER")
	}

	userID, err := resolveMemberUser(s.DB, req)
	if err != nil {
		return nil, err
	}
	member := &models.WorkingGroupMember{WorkingGroupID: groupID, UserID: userID, Role: req.Role}
	if err := s.DB.Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberAlreadyExist
		}
		return nil, err
	}
	return member, nil
}

// 8 RemoveMember 移除工作组成员
func (s *WorkingGroupService) RemoveMember(actorID, groupID, memberID uint) error {
	group, err := s.find(groupID)
	if err != nil {
		return err
	}
	var member models.WorkingGroupMember
	if err := s.DB.Where("id = ? AND working_group_id = ?", memberID, groupID).First(&member).Error; err != nil {
		return notFoundAs(err, ErrMemberNotFound)
	}
	if !s.Permissions.CanManageCommunity(actorID, group.CommunityID) {
		return ErrForbidden
	}
	return s.DB.Delete(&member).Error
}

// 9 ListPermissions 列出工作组权限
func (s *WorkingGroupService) ListPermissions(actorID, groupID uint) ([]models.WorkingGroupPermission, error) {
	group, err := s.find(groupID)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanViewCommunity(actorID, group.CommunityID) {
		return nil, ErrForbidden
	}
	var perms []models.WorkingGroupPermission
	err = s.DB.Where("working_group_id = ?", groupID).Order("id ASC").Find(&perms).Error
	return perms, err
}

// 10 AddPermission 授予权限；SPECIFIC_* 范围需要 scope_id
func (s *WorkingGroupService) AddPermission(actorID, groupID uint, req *GroupPermissionRequest) (*models.WorkingGroupPermission, error) {
	group, err := s.find(groupID)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageCommunity(actorID, group.CommunityID) {
		return nil, ErrForbidden
	}
	if !models.IsValidPermission(req.Permission) {
		return nil, invalidParam("invalid permission %q", req.Permission)
	}
	if !models.IsValidScope(req.Scope) {
		return nil, invalidParam("invalid scope %q", req.Scope)
	}

	switch req.Scope {
	case models.ScopeSpecificBuilding:
		if req.ScopeID == nil {
			return nil, invalidParam("scope_id is required for %s", req.Scope)
		}
		var building models.Building
		if err := s.DB.Where("id = ? AND community_id = ?", *req.ScopeID, group.CommunityID).First(&building).Error; err != nil {
			return nil, notFoundAs(err, ErrBuildingNotFound)
		}
	case models.ScopeSpecificHousehold:
		if req.ScopeID == nil {
			return nil, invalidParam("scope_id is required for %s", req.Scope)
		}
		var household models.Household
		if err := s.DB.Select("id").First(&household, *req.ScopeID).Error; err != nil {
			return nil, notFoundAs(err, ErrHouseholdNotFound)
		}
	default:
		req.ScopeID = nil
	}

	perm := &models.WorkingGroupPermission{
		WorkingGroupID: groupID,
		Permission:     req.Permission,
		Scope:          req.Scope,
		ScopeID:        req.ScopeID,
	}
	if err := s.DB.Create(perm).Error; err != nil {
		return nil, err
	}
	return perm, nil
}

// 11 RemovePermission 撤销权限
func (s *WorkingGroupService) RemovePermission(actorID, groupID, permissionID uint) error {
	group, err := s.find(groupID)
	if err != nil {
		return err
	}
	if !s.Permissions.CanManageCommunity(actorID, group.CommunityID) {
		return ErrForbidden
	}
	res := s.DB.Where("id = ? AND working_group_id = ?", permissionID, groupID).Delete(&models.WorkingGroupPermission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invalidParam("permission %d not found in group", permissionID)
	}
	return nil
}

// 12 InitializeDefaults 为社区创建默认工作组，已存在的类型跳过
func (s *WorkingGroupService) InitializeDefaults(actorID, communityID uint) ([]models.WorkingGroup, error) {
	if err := s.ensureCommunity(communityID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, d := range defaultGroups {
			var count int64
			if err := tx.Model(&models.WorkingGroup{}).
				Where("community_id = ? AND type = ?", communityID, d.groupType).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			group := &models.WorkingGroup{
				CommunityID: communityID,
				Name:        d.name,
				Type:        d.groupType,
				Description: d.description,
				IsActive:    true,
			}
			if err := tx.Create(group).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.WorkingGroupPermission{
				WorkingGroupID: group.ID,
				Permission:     d.permission,
				Scope:          d.scope,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var groups []models.WorkingGroup
	err = s.DB.Preload("Permissions").Where("community_id = ?", communityID).Order("id ASC").Find(&groups).Error
	return groups, err
}
