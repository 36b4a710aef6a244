package services

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
)

// InterfaceJoinRequestService 定义加入申请服务接口
type InterfaceJoinRequestService interface {
	SubmitRequest(actorID uint, req *JoinRequestInput) (*models.JoinRequest, error)
	ListMine(actorID uint, p models.PaginationQuery) ([]models.JoinRequest, ListResult, error)
	ListForTarget(actorID uint, targetType string, targetID uint, status string, p models.PaginationQuery) ([]models.JoinRequest, ListResult, error)
	ApproveRequest(actorID, id uint, role string) (*models.JoinRequest, error)
	RejectRequest(actorID, id uint) (*models.JoinRequest, error)
}

// JoinRequestInput 提交加入申请
type JoinRequestInput struct {
	Type     string `json:"type"`
	TargetID uint   `json:"target_id"`
	Message  string `json:"message"`
}

// JoinRequestService 加入申请服务
type JoinRequestService struct {
	DB            *gorm.DB
	Config        *config.Config
	Permissions   InterfacePermissionService
	Notifications InterfaceNotificationService
	now           func() time.Time
}

// NewJoinRequestService 创建加入申请服务
func NewJoinRequestService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, notifications InterfaceNotificationService) InterfaceJoinRequestService {
	return &JoinRequestService{DB: db, Config: cfg, Permissions: perms, Notifications: notifications, now: time.Now}
}

func (s *JoinRequestService) find(id uint) (*models.JoinRequest, error) {
	var req models.JoinRequest
	if err := s.DB.First(&req, id).Error; err != nil {
		return nil, notFoundAs(err, ErrJoinRequestNotFound)
	}
	return &req, nil
}

// targetExists 申请目标必须存在
func (s *JoinRequestService) targetExists(targetType string, targetID uint) error {
	switch targetType {
	case models.JoinTargetCommunity:
		var c models.Community
		return notFoundAs(s.DB.Select("id").First(&c, targetID).Error, ErrCommunityNotFound)
	case models.JoinTargetBuilding:
		var b models.Building
		return notFoundAs(s.DB.Select("id").First(&b, targetID).Error, ErrBuildingNotFound)
	case models.JoinTargetHousehold:
		var h models.Household
		return notFoundAs(s.DB.Select("id").First(&h, targetID).Error, ErrHouseholdNotFound)
	}
	return invalidParam("unknown join target %q", targetType)
}

func (s *JoinRequestService) memberRole(userID uint, targetType string, targetID uint) string {
	switch targetType {
	case models.JoinTargetCommunity:
		return s.Permissions.CommunityRole(userID, targetID)
	case models.JoinTargetBuilding:
		return s.Permissions.BuildingRole(userID, targetID)
	case models.JoinTargetHousehold:
		return s.Permissions.HouseholdRole(userID, targetID)
	}
	return ""
}

// reviewerRole 审核者在目标上的角色；楼栋上社区 ADMIN 视同楼栋 ADMIN
func (s *JoinRequestService) reviewerRole(userID uint, targetType string, targetID uint) string {
	role := s.memberRole(userID, targetType, targetID)
	if targetType != models.JoinTargetBuilding || role == models.BuildingRoleAdmin {
		return role
	}
	var building models.Building
	if err := s.DB.Select("id", "community_id").First(&building, targetID).Error; err != nil {
		return role
	}
	if s.Permissions.CommunityRole(userID, building.CommunityID) == models.CommunityRoleAdmin {
		return models.BuildingRoleAdmin
	}
	return role
}

// canReview 社区/楼栋管理者或住户 OWNER 审核
func (s *JoinRequestService) canReview(userID uint, targetType string, targetID uint) bool {
	switch targetType {
	case models.JoinTargetCommunity:
		return s.Permissions.CanManageCommunity(userID, targetID)
	case models.JoinTargetBuilding:
		return s.Permissions.CanManageBuilding(userID, targetID)
	case models.JoinTargetHousehold:
		return s.Permissions.CanManageHousehold(userID, targetID)
	}
	return false
}

// 1 SubmitRequest 提交加入申请，同一目标只允许一个待处理申请
func (s *JoinRequestService) SubmitRequest(actorID uint, req *JoinRequestInput) (*models.JoinRequest, error) {
	targetType := strings.ToLower(strings.TrimSpace(req.Type))
	if !models.IsValidJoinTarget(targetType) {
		return nil, invalidParam("type must be community, building or household")
	}
	if req.TargetID == 0 {
		return nil, invalidParam("target_id is required")
	}
	if err := s.targetExists(targetType, req.TargetID); err != nil {
		return nil, err
	}
	if s.memberRole(actorID, targetType, req.TargetID) != "" {
		return nil, ErrMemberAlreadyExist
	}

	var pending int64
	if err := s.DB.Model(&models.JoinRequest{}).
		Where("user_id = ? AND type = ? AND target_id = ? AND status = ?", actorID, targetType, req.TargetID, models.JoinRequestPending).
		Count(&pending).Error; err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, ErrJoinRequestDuplicate
	}

	joinReq := &models.JoinRequest{
		UserID:   actorID,
		Type:     targetType,
		TargetID: req.TargetID,
		Message:  strings.TrimSpace(req.Message),
		Status:   models.JoinRequestPending,
	}
	if err := s.DB.Create(joinReq).Error; err != nil {
		return nil, err
	}
	return joinReq, nil
}

// 2 ListMine 我提交的申请
func (s *JoinRequestService) ListMine(actorID uint, p models.PaginationQuery) ([]models.JoinRequest, ListResult, error) {
	var list []models.JoinRequest
	res, err := paginate(s.DB.Model(&models.JoinRequest{}).Where("user_id = ?", actorID), p, "id DESC", &list)
	return list, res, err
}

// 3 ListForTarget 审核者查看某目标的申请，默认只看待处理
func (s *JoinRequestService) ListForTarget(actorID uint, targetType string, targetID uint, status string, p models.PaginationQuery) ([]models.JoinRequest, ListResult, error) {
	targetType = strings.ToLower(targetType)
	if !models.IsValidJoinTarget(targetType) {
		return nil, ListResult{}, invalidParam("type must be community, building or household")
	}
	if err := s.targetExists(targetType, targetID); err != nil {
		return nil, ListResult{}, err
	}
	if !s.canReview(actorID, targetType, targetID) {
		return nil, ListResult{}, ErrForbidden
	}
	if status == "" {
		status = models.JoinRequestPending
	}

	query := s.DB.Model(&models.JoinRequest{}).Where("type = ? AND target_id = ?", targetType, targetID)
	if status != "all" {
		query = query.Where("status = ?", status)
	}
	var list []models.JoinRequest
	res, err := paginate(query.Preload("User"), p, "id ASC", &list)
	return list, res, err
}

// defaultJoinRole 住户默认 USER，社区/楼栋默认 MEMBER
func defaultJoinRole(targetType string) string {
	if targetType == models.JoinTargetHousehold {
		return models.HouseholdRoleUser
	}
	return models.CommunityRoleMember
}

func validJoinRole(targetType, role string) bool {
	switch targetType {
	case models.JoinTargetCommunity:
		return models.IsValidCommunityRole(role)
	case models.JoinTargetBuilding:
		return models.IsValidBuildingRole(role)
	case models.JoinTargetHousehold:
		return models.IsValidHouseholdRole(role)
	}
	return false
}

// claim 仅 pending 的申请可被处理，并发审核只有一方成功
func (s *JoinRequestService) claim(tx *gorm.DB, req *models.JoinRequest, status string, reviewerID uint) error {
	now := s.now()
	res := tx.Model(&models.JoinRequest{}).
		Where("id = ? AND status = ?", req.ID, models.JoinRequestPending).
		Updates(map[string]interface{}{"status": status, "reviewed_by_id": reviewerID, "reviewed_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJoinRequestNotPending
	}
	req.Status = status
	req.ReviewedByID = uintPtr(reviewerID)
	req.ReviewedAt = &now
	return nil
}

// 4 ApproveRequest 批准申请并加入目标；加入住户时级联加入楼栋与社区
func (s *JoinRequestService) ApproveRequest(actorID, id uint, role string) (*models.JoinRequest, error) {
	req, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.canReview(actorID, req.Type, req.TargetID) {
		return nil, ErrForbidden
	}
	if req.Status != models.JoinRequestPending {
		return nil, ErrJoinRequestNotPending
	}

	if role == "" {
		role = defaultJoinRole(req.Type)
	}
	role = strings.ToUpper(role)
	if !validJoinRole(req.Type, role) {
		return nil, invalidParam("invalid role %q for %s", role, req.Type)
	}
	if role != defaultJoinRole(req.Type) && !s.Permissions.IsSuperAdmin(actorID) &&
		!CanAssignRole(s.reviewerRole(actorID, req.Type, req.TargetID), role) {
		return nil, ErrRoleNotAssignable
	}

	if s.memberRole(req.UserID, req.Type, req.TargetID) != "" {
		if err := s.claim(s.DB, req, models.JoinRequestRejected, actorID); err != nil {
			return nil, err
		}
		return nil, ErrMemberAlreadyExist
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.claim(tx, req, models.JoinRequestApproved, actorID); err != nil {
			return err
		}
		switch req.Type {
		case models.JoinTargetCommunity:
			return tx.Create(&models.CommunityMember{CommunityID: req.TargetID, UserID: req.UserID, Role: role}).Error
		case models.JoinTargetBuilding:
			if err := tx.Create(&models.BuildingMember{BuildingID: req.TargetID, UserID: req.UserID, Role: role}).Error; err != nil {
				return err
			}
			return cascadeFromBuilding(tx, req.UserID, req.TargetID)
		default:
			if err := tx.Create(&models.HouseholdMember{HouseholdID: req.TargetID, UserID: req.UserID, Role: role}).Error; err != nil {
				return err
			}
			var household models.Household
			if err := tx.Select("id", "building_id").First(&household, req.TargetID).Error; err != nil {
				return err
			}
			if household.BuildingID == nil {
				return nil
			}
			if err := ensureBuildingMember(tx, req.UserID, *household.BuildingID); err != nil {
				return err
			}
			return cascadeFromBuilding(tx, req.UserID, *household.BuildingID)
		}
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberAlreadyExist
		}
		return nil, err
	}
	s.notify(req, "加入申请已通过")
	return req, nil
}

// 5 RejectRequest 拒绝申请
func (s *JoinRequestService) RejectRequest(actorID, id uint) (*models.JoinRequest, error) {
	req, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !s.canReview(actorID, req.Type, req.TargetID) {
		return nil, ErrForbidden
	}
	if err := s.claim(s.DB, req, models.JoinRequestRejected, actorID); err != nil {
		return nil, err
	}
	s.notify(req, "加入申请被拒绝")
	return req, nil
}

func ensureBuildingMember(tx *gorm.DB, userID, buildingID uint) error {
	member := models.BuildingMember{BuildingID: buildingID, UserID: userID}
	return tx.Where(&member).Attrs(models.BuildingMember{Role: models.BuildingRoleMember}).FirstOrCreate(&member).Error
}

// cascadeFromBuilding 楼栋成员自动成为所属社区 MEMBER
func cascadeFromBuilding(tx *gorm.DB, userID, buildingID uint) error {
	var building models.Building
	if err := tx.Select("id", "community_id").First(&building, buildingID).Error; err != nil {
		return err
	}
	member := models.CommunityMember{CommunityID: building.CommunityID, UserID: userID}
	return tx.Where(&member).Attrs(models.CommunityMember{Role: models.CommunityRoleMember}).FirstOrCreate(&member).Error
}

func (s *JoinRequestService) notify(req *models.JoinRequest, title string) {
	if s.Notifications == nil {
		return
	}
	_, err := s.Notifications.Notify([]uint{req.UserID}, NotificationInput{
		Type:        models.NotificationJoinRequest,
		Title:       title,
		Message:     fmt.Sprintf("%s #%d: %s", req.Type, req.TargetID, req.Status),
		RelatedType: "join_request",
		RelatedID:   uintPtr(req.ID),
	})
	if err != nil {
		logger.Named("join_request").Warn("join request notification failed", zap.Uint("request_id", req.ID), zap.Error(err))
	}
}
