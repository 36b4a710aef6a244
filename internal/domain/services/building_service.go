package services

import (
	"strings"

	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
)

// 门铃超时范围（秒）
const (
	MinDoorbellTimeoutSeconds = 5
	MaxDoorbellTimeoutSeconds = 600
)

// InterfaceBuildingService 定义楼栋服务接口
type InterfaceBuildingService interface {
	CreateBuilding(actorID, communityID uint, req *BuildingRequest) (*models.Building, error)
	GetBuilding(actorID, id uint) (*models.Building, error)
	UpdateBuilding(actorID, id uint, req *BuildingRequest) (*models.Building, error)
	DeleteBuilding(actorID, id uint) error
	ListHouseholds(actorID, buildingID uint) ([]models.Household, error)
	ListMembers(actorID, buildingID uint) ([]models.BuildingMember, error)
	AddMember(actorID, buildingID uint, req *MemberRequest) (*models.BuildingMember, error)
	RemoveMember(actorID, buildingID, memberID uint) error
	SetDoorbellTimeout(actorID, buildingID uint, seconds int) (*models.Building, error)
}

// BuildingRequest 创建/更新楼栋请求
type BuildingRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Floors      int    `json:"floors"`
	Description string `json:"description"`
}

// BuildingService 楼栋服务
type BuildingService struct {
	DB          *gorm.DB
	Config      *config.Config
	Permissions InterfacePermissionService
}

// NewBuildingService 创建楼栋服务
func NewBuildingService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService) InterfaceBuildingService {
	return &BuildingService{DB: db, Config: cfg, Permissions: perms}
}

func (s *BuildingService) find(id uint) (*models.Building, error) {
	var building models.Building
	if err := s.DB.First(&building, id).Error; err != nil {
		return nil, notFoundAs(err, ErrBuildingNotFound)
	}
	return &building, nil
}

// canView 楼栋成员、社区成员、楼内住户成员或超级管理员
func (s *BuildingService) canView(actorID uint, building *models.Building) bool {
	if s.Permissions.BuildingRole(actorID, building.ID) != "" {
		return true
	}
	if s.Permissions.CanViewCommunity(actorID, building.CommunityID) {
		return true
	}
	var count int64
	s.DB.Model(&models.HouseholdMember{}).
		Joins("JOIN households ON households.id = household_members.household_id").
		Where("household_members.user_id = ? AND households.building_id = ?", actorID, building.ID).
		Count(&count)
	return count > 0
}

// 1 CreateBuilding 在社区下创建楼栋
func (s *BuildingService) CreateBuilding(actorID, communityID uint, req *BuildingRequest) (*models.Building, error) {
	var community models.Community
	if err := s.DB.Select("id").First(&community, communityID).Error; err != nil {
		return nil, notFoundAs(err, ErrCommunityNotFound)
	}
	if !s.Permissions.CanManageCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}

	building := &models.Building{
		CommunityID:            communityID,
		Name:                   name,
		Address:                req.Address,
		Floors:                 req.Floors,
		Description:            req.Description,
		DoorbellTimeoutSeconds: s.defaultTimeout(),
	}
	if err := s.DB.Create(building).Error; err != nil {
		return nil, err
	}
	return building, nil
}

func (s *BuildingService) defaultTimeout() int {
	if s.Config != nil && s.Config.DefaultDoorbellTimeout > 0 {
		return s.Config.DefaultDoorbellTimeout
	}
	return models.DefaultDoorbellTimeoutSeconds
}

// 2 GetBuilding 获取楼栋详情
func (s *BuildingService) GetBuilding(actorID, id uint) (*models.Building, error) {
	building, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.canView(actorID, building) {
		return nil, ErrForbidden
	}
	return building, nil
}

// 3 UpdateBuilding 更新楼栋
func (s *BuildingService) UpdateBuilding(actorID, id uint, req *BuildingRequest) (*models.Building, error) {
	building, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageBuilding(actorID, id) {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{
		"address":     req.Address,
		"floors":      req.Floors,
		"description": req.Description,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if err := s.DB.Model(building).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(id)
}

// 4 DeleteBuilding 删除楼栋，仍有住户或门铃时拒绝
func (s *BuildingService) DeleteBuilding(actorID, id uint) error {
	if _, err := s.find(id); err != nil {
		return err
	}
	if !s.Permissions.CanManageBuilding(actorID, id) {
		return ErrForbidden
	}

	var households, doorbells int64
	s.DB.Model(&models.Household{}).Where("building_id = ?", id).Count(&households)
	s.DB.Model(&models.DoorBell{}).Where("building_id = ?", id).Count(&doorbells)
	if households > 0 || doorbells > 0 {
		return ErrBuildingNotEmpty
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("building_id = ?", id).Delete(&models.BuildingMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Building{}, id).Error
	})
}

// 5 ListHouseholds 列出楼栋下的住户
func (s *BuildingService) ListHouseholds(actorID, buildingID uint) ([]models.Household, error) {
	building, err := s.find(buildingID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actorID, building) {
		return nil, ErrForbidden
	}
	var households []models.Household
	err = s.DB.Where("building_id = ?", buildingID).Order("unit_number ASC, id ASC").Find(&households).Error
	// 非管理者不返回邀请码
	if err == nil && !s.Permissions.CanManageBuilding(actorID, buildingID) {
		for i := range households {
			households[i].InvitationCode = ""
		}
	}
	return households, err
}

// 6 ListMembers 列出楼栋成员
func (s *BuildingService) ListMembers(actorID, buildingID uint) ([]models.BuildingMember, error) {
	building, err := s.find(buildingID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actorID, building) {
		return nil, ErrForbidden
	}
	var members []models.BuildingMember
	err = s.DB.Preload("User").Where("building_id = ?", buildingID).Order("id ASC").Find(&members).Error
	return members, err
}

// 7 AddMember 添加楼栋成员
func (s *BuildingService) AddMember(actorID, buildingID uint, req *MemberRequest) (*models.BuildingMember, error) {
	if _, err := s.find(buildingID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageBuilding(actorID, buildingID) {
		return nil, ErrForbidden
	}
	if req.Role == "" {
		req.Role = models.BuildingRoleMember
	}
	if !models.IsValidBuildingRole(req.Role) {
		return nil, invalidParam("invalid building role %q", req.Role)
	}
	// 只有 ADMIN 或超级管理员可以授予管理角色
	if isManagerRole(req.Role) && !s.Permissions.IsSuperAdmin(actorID) &&
		!CanAssignRole(s.Permissions.BuildingRole(actorID, buildingID), req.Role) &&
		!CanAssignRole(s.communityRoleFor(actorID, buildingID), req.Role) {
		return nil, ErrRoleNotAssignable
	}

	userID, err := resolveMemberUser(s.DB, req)
	if err != nil {
		return nil, err
	}
	member := &models.BuildingMember{BuildingID: buildingID, UserID: userID, Role: req.Role}
	if err := s.DB.Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberAlreadyExist
		}
		return nil, err
	}
	return member, nil
}

func (s *BuildingService) communityRoleFor(actorID, buildingID uint) string {
	building, err := s.find(buildingID)
	if err != nil {
		return ""
	}
	return s.Permissions.CommunityRole(actorID, building.CommunityID)
}

// 8 RemoveMember 移除楼栋成员
func (s *BuildingService) RemoveMember(actorID, buildingID, memberID uint) error {
	var member models.BuildingMember
	if err := s.DB.Where("id = ? AND building_id = ?", memberID, buildingID).First(&member).Error; err != nil {
		return notFoundAs(err, ErrMemberNotFound)
	}
	if !s.Permissions.CanManageBuilding(actorID, buildingID) {
		return ErrForbidden
	}
	return s.DB.Delete(&member).Error
}

// 9 SetDoorbellTimeout 设置门铃转前台超时（5..600 秒）
func (s *BuildingService) SetDoorbellTimeout(actorID, buildingID uint, seconds int) (*models.Building, error) {
	building, err := s.find(buildingID)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageBuilding(actorID, buildingID) {
		return nil, ErrForbidden
	}
	if seconds < MinDoorbellTimeoutSeconds || seconds > MaxDoorbellTimeoutSeconds {
		return nil, invalidParam("seconds must be between %d and %d", MinDoorbellTimeoutSeconds, MaxDoorbellTimeoutSeconds)
	}
	if err := s.DB.Model(building).Update("doorbell_timeout_seconds", seconds).Error; err != nil {
		return nil, err
	}
	building.DoorbellTimeoutSeconds = seconds
	return building, nil
}
