package services

import (
	"strings"

	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
)

// InterfaceCommunityService 定义社区服务接口
type InterfaceCommunityService interface {
	CreateCommunity(actorID uint, req *CommunityRequest) (*models.Community, error)
	ListCommunities(actorID uint, p models.PaginationQuery) ([]models.Community, ListResult, error)
	GetCommunity(actorID, id uint) (*models.Community, error)
	UpdateCommunity(actorID, id uint, req *CommunityRequest) (*models.Community, error)
	DeleteCommunity(actorID, id uint) error
	ListMembers(actorID, communityID uint) ([]models.CommunityMember, error)
	AddMember(actorID, communityID uint, req *MemberRequest) (*models.CommunityMember, error)
	UpdateMemberRole(actorID, communityID, memberID uint, role string) (*models.CommunityMember, error)
	RemoveMember(actorID, communityID, memberID uint) error
	ListBuildings(actorID, communityID uint) ([]models.Building, error)
}

// CommunityRequest 创建/更新社区请求
type CommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

// MemberRequest 添加成员请求，user_id 与 email 二选一
type MemberRequest struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// CommunityService 社区服务
type CommunityService struct {
	DB          *gorm.DB
	Config      *config.Config
	Permissions InterfacePermissionService
}

// NewCommunityService 创建社区服务
func NewCommunityService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService) InterfaceCommunityService {
	return &CommunityService{DB: db, Config: cfg, Permissions: perms}
}

func (s *CommunityService) find(id uint) (*models.Community, error) {
	var community models.Community
	if err := s.DB.First(&community, id).Error; err != nil {
		return nil, notFoundAs(err, ErrCommunityNotFound)
	}
	return &community, nil
}

// resolveMemberUser 根据 user_id 或 email 找到目标用户
func resolveMemberUser(db *gorm.DB, req *MemberRequest) (uint, error) {
	var user models.User
	var err error
	switch {
	case req.UserID != 0:
		err = db.Select("id").First(&user, req.UserID).Error
	case req.Email != "":
		err = db.Select("id").Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	default:
		return 0, invalidParam("user_id or email is required")
	}
	if err != nil {
		return 0, notFoundAs(err, ErrUserNotFound)
	}
	return user.ID, nil
}

// 1 CreateCommunity 创建社区，创建者成为 ADMIN
func (s *CommunityService) CreateCommunity(actorID uint, req *CommunityRequest) (*models.Community, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}

	community := &models.Community{
		Name:        name,
		Description: req.Description,
		Address:     req.Address,
		CreatedByID: actorID,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		return tx.Create(&models.CommunityMember{
			CommunityID: community.ID,
			UserID:      actorID,
			Role:        models.CommunityRoleAdmin,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return community, nil
}

// 2 ListCommunities 超级管理员查看全部，其他用户查看所属社区
func (s *CommunityService) ListCommunities(actorID uint, p models.PaginationQuery) ([]models.Community, ListResult, error) {
	query := s.DB.Model(&models.Community{})
	if !s.Permissions.IsSuperAdmin(actorID) {
		sub := s.DB.Model(&models.CommunityMember{}).Select("community_id").Where("user_id = ?", actorID)
		query = query.Where("id IN (?)", sub)
	}
	var list []models.Community
	res, err := paginate(query, p, "id ASC", &list)
	return list, res, err
}

// 3 GetCommunity 获取社区详情
func (s *CommunityService) GetCommunity(actorID, id uint) (*models.Community, error) {
	community, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanViewCommunity(actorID, id) {
		return nil, ErrForbidden
	}
	return community, nil
}

// 4 UpdateCommunity 更新社区
func (s *CommunityService) UpdateCommunity(actorID, id uint, req *CommunityRequest) (*models.Community, error) {
	community, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageCommunity(actorID, id) {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{
		"description": req.Description,
		"address":     req.Address,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if err := s.DB.Model(community).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(id)
}

// 5 DeleteCommunity 删除社区，仍有楼栋时拒绝
func (s *CommunityService) DeleteCommunity(actorID, id uint) error {
	if _, err := s.find(id); err != nil {
		return err
	}
	if !s.Permissions.CanManageCommunity(actorID, id) {
		return ErrForbidden
	}

	var buildings int64
	s.DB.Model(&models.Building{}).Where("community_id = ?", id).Count(&buildings)
	if buildings > 0 {
		return invalidParam("community still has buildings")
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ?", id).Delete(&models.CommunityMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Community{}, id).Error
	})
}

// 6 ListMembers 列出社区成员
func (s *CommunityService) ListMembers(actorID, communityID uint) ([]models.CommunityMember, error) {
	if _, err := s.find(communityID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanViewCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}
	var members []models.CommunityMember
	err := s.DB.Preload("User").Where("community_id = ?", communityID).Order("id ASC").Find(&members).Error
	return members, err
}

// canAssign 超级管理员可分配任意角色，否则按 CanAssignRole 判断
func (s *CommunityService) canAssign(actorID, communityID uint, role string) bool {
	if s.Permissions.IsSuperAdmin(actorID) {
		return true
	}
	return CanAssignRole(s.Permissions.CommunityRole(actorID, communityID), role)
}

// 7 AddMember 添加社区成员
func (s *CommunityService) AddMember(actorID, communityID uint, req *MemberRequest) (*models.CommunityMember, error) {
	if _, err := s.find(communityID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanManageCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}
	if req.Role == "" {
		req.Role = models.CommunityRoleMember
	}
	if !models.IsValidCommunityRole(req.Role) {
		return nil, invalidParam("invalid community role %q", req.Role)
	}
	if isManagerRole(req.Role) && !s.canAssign(actorID, communityID, req.Role) {
		return nil, ErrRoleNotAssignable
	}

	userID, err := resolveMemberUser(s.DB, req)
	if err != nil {
		return nil, err
	}

	member := &models.CommunityMember{CommunityID: communityID, UserID: userID, Role: req.Role}
	if err := s.DB.Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberAlreadyExist
		}
		return nil, err
	}
	return member, nil
}

func (s *CommunityService) findMember(communityID, memberID uint) (*models.CommunityMember, error) {
	var member models.CommunityMember
	if err := s.DB.Where("id = ? AND community_id = ?", memberID, communityID).First(&member).Error; err != nil {
		return nil, notFoundAs(err, ErrMemberNotFound)
	}
	return &member, nil
}

// 8 UpdateMemberRole 修改成员角色
func (s *CommunityService) UpdateMemberRole(actorID, communityID, memberID uint, role string) (*models.CommunityMember, error) {
	member, err := s.findMember(communityID, memberID)
	if err != nil {
		return nil, err
	}
	if !models.IsValidCommunityRole(role) {
		return nil, invalidParam("invalid community role %q", role)
	}
	if !s.Permissions.CanManageCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}
	if !s.canAssign(actorID, communityID, role) {
		return nil, ErrRoleNotAssignable
	}

	if err := s.DB.Model(member).Update("role", role).Error; err != nil {
		return nil, err
	}
	member.Role = role
	return member, nil
}

// 9 RemoveMember 移除社区成员
func (s *CommunityService) RemoveMember(actorID, communityID, memberID uint) error {
	member, err := s.findMember(communityID, memberID)
	if err != nil {
		return err
	}
	if !s.Permissions.CanManageCommunity(actorID, communityID) {
		return ErrForbidden
	}
	// 不能移除比自己等级高的成员
	if !s.canAssign(actorID, communityID, member.Role) && member.UserID != actorID {
		return ErrRoleNotAssignable
	}
	return s.DB.Delete(member).Error
}

// 10 ListBuildings 列出社区下的楼栋
func (s *CommunityService) ListBuildings(actorID, communityID uint) ([]models.Building, error) {
	if _, err := s.find(communityID); err != nil {
		return nil, err
	}
	if !s.Permissions.CanViewCommunity(actorID, communityID) {
		return nil, ErrForbidden
	}
	var buildings []models.Building
	err := s.DB.Where("community_id = ?", communityID).Order("id ASC").Find(&buildings).Error
	return buildings, err
}
