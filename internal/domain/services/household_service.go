package services

import (
	"strings"

	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/utils"
)

const invitationCodeLength = 8

// InterfaceHouseholdService 定义住户服务接口
type InterfaceHouseholdService interface {
	CreateHousehold(actorID uint, req *HouseholdRequest) (*models.Household, error)
	ListHouseholds(actorID uint, p models.PaginationQuery) ([]models.Household, ListResult, error)
	GetHousehold(actorID, id uint) (*models.Household, error)
	UpdateHousehold(actorID, id uint, req *HouseholdRequest) (*models.Household, error)
	DeleteHousehold(actorID, id uint) error
	ListMembers(actorID, householdID uint) ([]models.HouseholdMember, error)
	AddMember(actorID, householdID uint, req *MemberRequest) (*models.HouseholdMember, error)
	UpdateMemberRole(actorID, householdID, memberID uint, role string) (*models.HouseholdMember, error)
	RemoveMember(actorID, householdID, memberID uint) error
	JoinByInvitation(actorID uint, code string) (*models.HouseholdMember, error)
	RegenerateInvitationCode(actorID, householdID uint) (string, error)
}

// HouseholdRequest 创建/更新住户请求
type HouseholdRequest struct {
	Name        string `json:"name"`
	BuildingID  *uint  `json:"building_id"`
	UnitNumber  string `json:"unit_number"`
	Description string `json:"description"`
}

// HouseholdService 住户服务
type HouseholdService struct {
	DB          *gorm.DB
	Config      *config.Config
	Permissions InterfacePermissionService
}

// NewHouseholdService 创建住户服务
func NewHouseholdService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService) InterfaceHouseholdService {
	return &HouseholdService{DB: db, Config: cfg, Permissions: perms}
}

func (s *HouseholdService) find(id uint) (*models.Household, error) {
	var household models.Household
	if err := s.DB.First(&household, id).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}
	return &household, nil
}

// newInvitationCode 生成未被占用的邀请码
func (s *HouseholdService) newInvitationCode() (string, error) {
	for i := 0; i < 5; i++ {
		code := utils.RandomCode(invitationCodeLength)
		var count int64
		if err := s.DB.Model(&models.Household{}).Where("invitation_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", invalidParam("could not allocate invitation code")
}

// 1 CreateHousehold 创建住户，创建者成为 OWNER
func (s *HouseholdService) CreateHousehold(actorID uint, req *HouseholdRequest) (*models.Household, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}
	if req.BuildingID != nil {
		var building models.Building
		if err := s.DB.Select("id").First(&building, *req.BuildingID).Error; err != nil {
			return nil, notFoundAs(err, ErrBuildingNotFound)
		}
	}

	code, err := s.newInvitationCode()
	if err != nil {
		return nil, err
	}
	household := &models.Household{
		Name:           name,
		BuildingID:     req.BuildingID,
		UnitNumber:     req.UnitNumber,
		Description:    req.Description,
		InvitationCode: code,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(household).Error; err != nil {
			return err
		}
		return tx.Create(&models.HouseholdMember{
			HouseholdID: household.ID,
			UserID:      actorID,
			Role:        models.HouseholdRoleOwner,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return household, nil
}

// 2 ListHouseholds 我的住户；超级管理员查看全部
func (s *HouseholdService) ListHouseholds(actorID uint, p models.PaginationQuery) ([]models.Household, ListResult, error) {
	query := s.DB.Model(&models.Household{})
	if !s.Permissions.IsSuperAdmin(actorID) {
		sub := s.DB.Model(&models.HouseholdMember{}).Select("household_id").Where("user_id = ?", actorID)
		query = query.Where("id IN (?)", sub)
	}
	var list []models.Household
	res, err := paginate(query.Preload("Building"), p, "id ASC", &list)
	return list, res, err
}

// 3 GetHousehold 获取住户详情（含成员）
func (s *HouseholdService) GetHousehold(actorID, id uint) (*models.Household, error) {
	if _, err := s.find(id); err != nil {
		return nil, err
	}
	if !s.Permissions.CanAccessHousehold(actorID, id) {
		return nil, ErrForbidden
	}
	var household models.Household
	if err := s.DB.Preload("Building").Preload("Members.User").First(&household, id).Error; err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageHousehold(actorID, id) {
		household.InvitationCode = ""
	}
	return &household, nil
}

// 4 UpdateHousehold 更新住户
func (s *HouseholdService) UpdateHousehold(actorID, id uint, req *HouseholdRequest) (*models.Household, error) {
	household, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageHousehold(actorID, id) {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{
		"unit_number": req.UnitNumber,
		"description": req.Description,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.BuildingID != nil {
		var building models.Building
		if err := s.DB.Select("id").First(&building, *req.BuildingID).Error; err != nil {
			return nil, notFoundAs(err, ErrBuildingNotFound)
		}
		updates["building_id"] = *req.BuildingID
	}
	if err := s.DB.Model(household).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(id)
}

// 5 DeleteHousehold 删除住户及成员，门铃解除绑定
func (s *HouseholdService) DeleteHousehold(actorID, id uint) error {
	if _, err := s.find(id); err != nil {
		return err
	}
	if !s.Permissions.CanManageHousehold(actorID, id) {
		return ErrForbidden
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DoorBell{}).Where("household_id = ?", id).Update("household_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("household_id = ?", id).Delete(&models.HouseholdMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Household{}, id).Error
	})
}

// 6 ListMembers 列出住户成员
func (s *HouseholdService) ListMembers(actorID, householdID uint) ([]models.HouseholdMember, error) {
	if _, err := s.find(householdID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanAccessHousehold(actorID, householdID) {
		return nil, ErrForbidden
	}
	var members []models.HouseholdMember
	err := s.DB.Preload("User").Where("household_id = ?", householdID).Order("id ASC").Find(&members).Error
	return members, err
}

func (s *HouseholdService) canAssign(actorID, householdID uint, role string) bool {
	if s.Permissions.IsSuperAdmin(actorID) {
		return true
	}
	actorRole := s.Permissions.HouseholdRole(actorID, householdID)
	if actorRole == "" && s.Permissions.CanManageHousehold(actorID, householdID) {
		// 楼栋管理者按 OWNER 处理
		actorRole = models.HouseholdRoleOwner
	}
	return CanAssignRole(actorRole, role)
}

// 7 AddMember 添加住户成员
func (s *HouseholdService) AddMember(actorID, householdID uint, req *MemberRequest) (*models.HouseholdMember, error) {
	if _, err := s.find(householdID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageHousehold(actorID, householdID) {
		return nil, ErrForbidden
	}
	if req.Role == "" {
		req.Role = models.HouseholdRoleUser
	}
	if !models.IsValidHouseholdRole(req.Role) {
		return nil, invalidParam("invalid household role %q", req.Role)
	}
	if !s.canAssign(actorID, householdID, req.Role) {
		return nil, ErrRoleNotAssignable
	}

	userID, err := resolveMemberUser(s.DB, req)
	if err != nil {
		return nil, err
	}
	member := &models.HouseholdMember{HouseholdID: householdID, UserID: userID, Role: req.Role}
	if err := s.DB.Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberAlreadyExist
		}
		return nil, err
	}
	return member, nil
}

func (s *HouseholdService) findMember(householdID, memberID uint) (*models.HouseholdMember, error) {
	var member models.HouseholdMember
	if err := s.DB.Where("id = ? AND household_id = ?", memberID, householdID).First(&member).Error; err != nil {
		return nil, notFoundAs(err, ErrMemberNotFound)
	}
	return &member, nil
}

// 8 UpdateMemberRole 修改住户成员角色
func (s *HouseholdService) UpdateMemberRole(actorID, householdID, memberID uint, role string) (*models.HouseholdMember, error) {
	member, err := s.findMember(householdID, memberID)
	if err != nil {
		return nil, err
	}
	if !models.IsValidHouseholdRole(role) {
		return nil, invalidParam("invalid household role %q", role)
	}
	if !s.Permissions.CanManageHousehold(actorID, householdID) {
		return nil, ErrForbidden
	}
	if !s.canAssign(actorID, householdID, role) {
		return nil, ErrRoleNotAssignable
	}
	if err := s.DB.Model(member).Update("role", role).Error; err != nil {
		return nil, err
	}
	member.Role = role
	return member, nil
}

// 9 RemoveMember 移除住户成员；成员可以自行退出
func (s *HouseholdService) RemoveMember(actorID, householdID, memberID uint) error {
	member, err := s.findMember(householdID, memberID)
	if err != nil {
		return err
	}
	if member.UserID != actorID && !s.Permissions.CanManageHousehold(actorID, householdID) {
		return ErrForbidden
	}
	return s.DB.Delete(member).Error
}

// 10 JoinByInvitation 通过邀请码加入，角色为 USER
func (s *HouseholdService) JoinByInvitation(actorID uint, code string) (*models.HouseholdMember, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidInvitationCode
	}
	var household models.Household
	if err := s.DB.Where("invitation_code = ?", code).First(&household).Error; err != nil {
		return nil, notFoundAs(err, ErrInvalidInvitationCode)
	}

	var count int64
	s.DB.Model(&models.HouseholdMember{}).Where("household_id = ? AND user_id = ?", household.ID, actorID).Count(&count)
	if count > 0 {
		return nil, ErrMemberAlreadyExist
	}

	member := &models.HouseholdMember{HouseholdID: household.ID, UserID: actorID, Role: models.HouseholdRoleUser}
	if err := s.DB.Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberAlreadyExist
		}
		return nil, err
	}
	return member, nil
}

// 11 RegenerateInvitationCode 重新生成邀请码
func (s *HouseholdService) RegenerateInvitationCode(actorID, householdID uint) (string, error) {
	household, err := s.find(householdID)
	if err != nil {
		return "", err
	}
	if !s.Permissions.CanManageHousehold(actorID, householdID) {
		return "", ErrForbidden
	}
	code, err := s.newInvitationCode()
	if err != nil {
		return "", err
	}
	if err := s.DB.Model(household).Update("invitation_code", code).Error; err != nil {
		return "", err
	}
	return code, nil
}
