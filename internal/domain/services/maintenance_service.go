package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
)

// InterfaceMaintenanceService 定义维修工单服务接口
type InterfaceMaintenanceService interface {
	CreateTicket(actorID uint, req *TicketRequest) (*models.MaintenanceTicket, error)
	CreateKitchenTicket(tx *gorm.DB, actorID uint, order *models.CateringOrder) (*models.MaintenanceTicket, error)
	ListTickets(actorID uint, filter TicketFilter, p models.PaginationQuery) ([]models.MaintenanceTicket, ListResult, error)
	GetTicket(actorID, id uint) (*models.MaintenanceTicket, error)
	EvaluateTicket(actorID, id uint, req *EvaluateRequest) (*models.MaintenanceTicket, error)
	StartTicket(actorID, id uint) (*models.MaintenanceTicket, error)
	CompleteTicket(actorID, id uint) (*models.MaintenanceTicket, error)
	SignoffTicket(actorID, id uint, req *SignoffRequest) (*models.MaintenanceTicket, error)
	CancelTicket(actorID, id uint) (*models.MaintenanceTicket, error)
}

// TicketRequest 创建工单请求
type TicketRequest struct {
	HouseholdID uint   `json:"household_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Location    string `json:"location"`
}

// TicketFilter 工单列表过滤条件
type TicketFilter struct {
	HouseholdID uint
	BuildingID  uint
	CommunityID uint
	Status      string
	Category    string
}

// EvaluateRequest 评估工单请求
type EvaluateRequest struct {
	Priority       string `json:"priority"`
	AssignedToID   *uint  `json:"assigned_to_id"`
	WorkingGroupID *uint  `json:"working_group_id"`
}

// SignoffRequest 工单签核请求
type SignoffRequest struct {
	SignoffType string `json:"signoff_type" binding:"required"`
	Rating      int    `json:"rating"`
	Comments    string `json:"comments"`
}

// MaintenanceService 维修工单服务
type MaintenanceService struct {
	DB            *gorm.DB
	Config        *config.Config
	Permissions   InterfacePermissionService
	Notifications InterfaceNotificationService
	now           func() time.Time
}

// NewMaintenanceService 创建维修工单服务
func NewMaintenanceService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, notifications InterfaceNotificationService) InterfaceMaintenanceService {
	return &MaintenanceService{DB: db, Config: cfg, Permissions: perms, Notifications: notifications, now: time.Now}
}

// nextTicketNumber 生成当日流水号 MT-YYYYMMDD-NNNN
func nextTicketNumber(tx *gorm.DB, now time.Time) (string, error) {
	prefix := "MT-" + now.Format("20060102") + "-"
	var last []string
	err := tx.Model(&models.MaintenanceTicket{}).
		Where("ticket_number LIKE ?", prefix+"%").
		Order("ticket_number DESC").
		Limit(1).
		Pluck("ticket_number", &last).Error
	if err != nil {
		return "", err
	}
	seq := 1
	if len(last) > 0 {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last[0], prefix))
		if convErr == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// routingGroup 查找覆盖楼栋的工作组。未配置授权范围的组视为覆盖全社区；
// 授权只指向其他楼栋的组不参与路由。餐饮工单按社区路由。
func routingGroup(db *gorm.DB, communityID uint, buildingID *uint, groupType string) *uint {
	var groups []models.WorkingGroup
	err := db.Preload("Permissions").
		Where("community_id = ? AND type = ? AND is_active = ?", communityID, groupType, true).
		Order("id ASC").
		Find(&groups).Error
	if err != nil || len(groups) == 0 {
		return nil
	}
	if groupType == models.WorkingGroupCatering {
		return uintPtr(groups[0].ID)
	}
	if buildingID != nil {
		for _, g := range groups {
			for _, p := range g.Permissions {
				if p.CoversBuilding(*buildingID) {
					return uintPtr(g.ID)
				}
			}
		}
	}
	for _, g := range groups {
		if len(g.Permissions) == 0 {
			return uintPtr(g.ID)
		}
	}
	return nil
}

// insertTicket 补全楼栋/社区/路由与编号后写入
func (s *MaintenanceService) insertTicket(tx *gorm.DB, ticket *models.MaintenanceTicket) error {
	var household models.Household
	if err := tx.Preload("Building").First(&household, ticket.HouseholdID).Error; err != nil {
		return notFoundAs(err, ErrHouseholdNotFound)
	}
	ticket.BuildingID = household.BuildingID
	if household.Building != nil {
		ticket.CommunityID = uintPtr(household.Building.CommunityID)
		groupType := models.WorkingGroupMaintenance
		if ticket.Category == models.TicketCategoryFoodOrder {
			groupType = models.WorkingGroupCatering
		}
		ticket.WorkingGroupID = routingGroup(tx, household.Building.CommunityID, household.BuildingID, groupType)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		number, err := nextTicketNumber(tx, s.now())
		if err != nil {
			return err
		}
		ticket.TicketNumber = number
		lastErr = tx.Create(ticket).Error
		if lastErr == nil || !isDuplicate(lastErr) {
			return lastErr
		}
		ticket.ID = 0
	}
	return lastErr
}

func (s *MaintenanceService) notify(userIDs []uint, ticket *models.MaintenanceTicket, title string) {
	if s.Notifications == nil {
		return
	}
	_, err := s.Notifications.Notify(userIDs, NotificationInput{
		Type:        models.NotificationTicketUpdate,
		Title:       title,
		Message:     fmt.Sprintf("%s: %s (%s)", ticket.TicketNumber, ticket.Title, ticket.Status),
		RelatedType: "ticket",
		RelatedID:   uintPtr(ticket.ID),
	})
	if err != nil {
		logger.Named("maintenance").Warn("ticket notification failed", zap.Uint("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *MaintenanceService) groupMembers(groupID *uint) []uint {
	if groupID == nil {
		return nil
	}
	var ids []uint
	s.DB.Model(&models.WorkingGroupMember{}).Where("working_group_id = ?", *groupID).Pluck("user_id", &ids)
	return ids
}

// 1 CreateTicket 住户成员提交工单
func (s *MaintenanceService) CreateTicket(actorID uint, req *TicketRequest) (*models.MaintenanceTicket, error) {
	var household models.Household
	if err := s.DB.Select("id").First(&household, req.HouseholdID).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}
	if !s.Permissions.CanAccessHousehold(actorID, req.HouseholdID) {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidParam("title is required")
	}
	category := req.Category
	if category == "" {
		category = models.TicketCategoryBuildingMaintenance
	}
	if !models.IsValidTicketCategory(category) {
		return nil, invalidParam("invalid category %q", category)
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.IsValidPriority(priority) {
		return nil, invalidParam("invalid priority %q", priority)
	}

	ticket := &models.MaintenanceTicket{
		HouseholdID:   req.HouseholdID,
		RequestedByID: actorID,
		Title:         title,
		Description:   req.Description,
		Category:      category,
		Priority:      priority,
		Status:        models.TicketStatusPendingEvaluation,
		Location:      req.Location,
	}
	if err := s.DB.Transaction(func(tx *gorm.DB) error { return s.insertTicket(tx, ticket) }); err != nil {
		return nil, err
	}

	s.notify(s.groupMembers(ticket.WorkingGroupID), ticket, "New ticket "+ticket.TicketNumber)
	return ticket, nil
}

// 2 CreateKitchenTicket 为餐饮订单在调用方事务中创建厨房工单
func (s *MaintenanceService) CreateKitchenTicket(tx *gorm.DB, actorID uint, order *models.CateringOrder) (*models.MaintenanceTicket, error) {
	ticket := &models.MaintenanceTicket{
		HouseholdID:     order.HouseholdID,
		RequestedByID:   actorID,
		Title:           "Kitchen work order " + order.OrderNumber,
		Description:     order.Notes,
		Category:        models.TicketCategoryFoodOrder,
		Priority:        models.PriorityNormal,
		Status:          models.TicketStatusAssigned,
		Location:        "Kitchen",
		CateringOrderID: uintPtr(order.ID),
	}
	if order.DeliveryType == models.DeliveryImmediate {
		ticket.Priority = models.PriorityHigh
	}
	now := s.now()
	ticket.EvaluatedAt = &now
	if err := s.insertTicket(tx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// 3 ListTickets 按住户/楼栋/社区范围列出工单；未指定范围时返回与我相关的工单
func (s *MaintenanceService) ListTickets(actorID uint, filter TicketFilter, p models.PaginationQuery) ([]models.MaintenanceTicket, ListResult, error) {
	query := s.DB.Model(&models.MaintenanceTicket{})
	switch {
	case filter.HouseholdID != 0:
		if !s.Permissions.CanAccessHousehold(actorID, filter.HouseholdID) {
			return nil, ListResult{}, ErrForbidden
		}
		query = query.Where("household_id = ?", filter.HouseholdID)
	case filter.BuildingID != 0:
		if !s.Permissions.CanManageBuilding(actorID, filter.BuildingID) {
			return nil, ListResult{}, ErrForbidden
		}
		query = query.Where("building_id = ?", filter.BuildingID)
	case filter.CommunityID != 0:
		if !s.Permissions.CanManageCommunity(actorID, filter.CommunityID) {
			return nil, ListResult{}, ErrForbidden
		}
		query = query.Where("community_id = ?", filter.CommunityID)
	default:
		if !s.Permissions.IsSuperAdmin(actorID) {
			groupIDs := s.DB.Model(&models.WorkingGroupMember{}).Select("working_group_id").Where("user_id = ?", actorID)
			query = query.Where("requested_by_id = ? OR assigned_to_id = ? OR working_group_id IN (?)", actorID, actorID, groupIDs)
		}
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	var list []models.MaintenanceTicket
	res, err := paginate(query, p, "id DESC", &list)
	return list, res, err
}

func (s *MaintenanceService) load(id uint) (*models.MaintenanceTicket, error) {
	var ticket models.MaintenanceTicket
	if err := s.DB.Preload("Signoffs").First(&ticket, id).Error; err != nil {
		return nil, notFoundAs(err, ErrTicketNotFound)
	}
	return &ticket, nil
}

func (s *MaintenanceService) canManage(actorID uint, t *models.MaintenanceTicket) bool {
	if t.BuildingID != nil {
		return s.Permissions.CanManageBuilding(actorID, *t.BuildingID)
	}
	return s.Permissions.CanManageHousehold(actorID, t.HouseholdID)
}

// isWorker 指派人或所属工作组成员
func (s *MaintenanceService) isWorker(actorID uint, t *models.MaintenanceTicket) bool {
	if t.AssignedToID != nil && *t.AssignedToID == actorID {
		return true
	}
	if t.WorkingGroupID != nil && s.Permissions.IsWorkingGroupMember(actorID, *t.WorkingGroupID) {
		return true
	}
	return s.Permissions.IsSuperAdmin(actorID)
}

// 4 GetTicket 获取工单详情
func (s *MaintenanceService) GetTicket(actorID, id uint) (*models.MaintenanceTicket, error) {
	ticket, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if ticket.RequestedByID == actorID || s.isWorker(actorID, ticket) ||
		s.Permissions.CanAccessHousehold(actorID, ticket.HouseholdID) {
		return ticket, nil
	}
	return nil, ErrForbidden
}

// 5 EvaluateTicket 楼栋管理者评估工单，设置指派人时直接进入 ASSIGNED
func (s *MaintenanceService) EvaluateTicket(actorID, id uint, req *EvaluateRequest) (*models.MaintenanceTicket, error) {
	ticket, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.canManage(actorID, ticket) {
		return nil, ErrForbidden
	}
	switch ticket.Status {
	case models.TicketStatusPendingEvaluation, models.TicketStatusEvaluated, models.TicketStatusAssigned:
	default:
		return nil, ErrTicketInvalidStatus
	}

	if req.Priority != "" {
		if !models.IsValidPriority(req.Priority) {
			return nil, invalidParam("invalid priority %q", req.Priority)
		}
		ticket.Priority = req.Priority
	}
	if req.WorkingGroupID != nil {
		var group models.WorkingGroup
		if err := s.DB.Select("id").First(&group, *req.WorkingGroupID).Error; err != nil {
			return nil, notFoundAs(err, ErrWorkingGroupNotFound)
		}
		ticket.WorkingGroupID = req.WorkingGroupID
	}
	if req.AssignedToID != nil {
		var user models.User
		if err := s.DB.Select("id").First(&user, *req.AssignedToID).Error; err != nil {
			return nil, notFoundAs(err, ErrUserNotFound)
		}
		ticket.AssignedToID = req.AssignedToID
	}

	now := s.now()
	ticket.EvaluatedAt = &now
	ticket.Status = models.TicketStatusEvaluated
	if ticket.AssignedToID != nil {
		ticket.Status = models.TicketStatusAssigned
	}
	if err := s.DB.Omit("Signoffs").Save(ticket).Error; err != nil {
		return nil, err
	}

	recipients := []uint{ticket.RequestedByID}
	if ticket.AssignedToID != nil {
		recipients = append(recipients, *ticket.AssignedToID)
	}
	s.notify(recipients, ticket, "Ticket evaluated")
	return ticket, nil
}

// 6 StartTicket 开始处理
func (s *MaintenanceService) StartTicket(actorID, id uint) (*models.MaintenanceTicket, error) {
	ticket, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.isWorker(actorID, ticket) {
		return nil, ErrForbidden
	}
	switch ticket.Status {
	case models.TicketStatusPendingEvaluation, models.TicketStatusEvaluated, models.TicketStatusAssigned:
	default:
		return nil, ErrTicketInvalidStatus
	}

	now := s.now()
	ticket.Status = models.TicketStatusInProgress
	ticket.StartedAt = &now
	if ticket.AssignedToID == nil {
		ticket.AssignedToID = uintPtr(actorID)
	}
	if err := s.DB.Omit("Signoffs").Save(ticket).Error; err != nil {
		return nil, err
	}
	s.notify([]uint{ticket.RequestedByID}, ticket, "Work started")
	return ticket, nil
}

// 7 CompleteTicket 完工；餐饮工单同步将订单 preparing 改为 ready
func (s *MaintenanceService) CompleteTicket(actorID, id uint) (*models.MaintenanceTicket, error) {
	ticket, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.isWorker(actorID, ticket) {
		return nil, ErrForbidden
	}
	if ticket.Status != models.TicketStatusInProgress {
		return nil, ErrTicketInvalidStatus
	}

	now := s.now()
	ticket.Status = models.TicketStatusWorkCompleted
	ticket.CompletedAt = &now

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Signoffs").Save(ticket).Error; err != nil {
			return err
		}
		if ticket.Category != models.TicketCategoryFoodOrder || ticket.CateringOrderID == nil {
			return nil
		}
		return tx.Model(&models.CateringOrder{}).
			Where("id = ? AND status = ?", *ticket.CateringOrderID, models.OrderStatusPreparing).
			Updates(map[string]interface{}{"status": models.OrderStatusReady, "ready_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify([]uint{ticket.RequestedByID}, ticket, "Work completed")
	return ticket, nil
}

// 8 SignoffTicket 签核：组长 -> 供应商 -> 住户关闭
func (s *MaintenanceService) SignoffTicket(actorID, id uint, req *SignoffRequest) (*models.MaintenanceTicket, error) {
	ticket, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, invalidParam("rating must be between 1 and 5")
	}

	isAdmin := s.Permissions.IsSuperAdmin(actorID) || s.canManage(actorID, ticket)
	var next string
	switch req.SignoffType {
	case models.SignoffCrewLead:
		leader := ticket.WorkingGroupID != nil && s.Permissions.IsWorkingGroupLeader(actorID, *ticket.WorkingGroupID)
		if !leader && !isAdmin {
			return nil, ErrForbidden
		}
		if ticket.Status != models.TicketStatusWorkCompleted {
			return nil, ErrTicketInvalidStatus
		}
		next = models.TicketStatusSignedOffByCrew
	case models.SignoffSupplierLead:
		if !isAdmin {
			return nil, ErrForbidden
		}
		if ticket.Status != models.TicketStatusWorkCompleted && ticket.Status != models.TicketStatusSignedOffByCrew {
			return nil, ErrTicketInvalidStatus
		}
		next = models.TicketStatusSignedOffBySupplier
	case models.SignoffHousehold:
		if s.Permissions.HouseholdRole(actorID, ticket.HouseholdID) == "" {
			return nil, ErrForbidden
		}
		switch ticket.Status {
		case models.TicketStatusWorkCompleted, models.TicketStatusSignedOffByCrew, models.TicketStatusSignedOffBySupplier:
		default:
			return nil, ErrTicketInvalidStatus
		}
		next = models.TicketStatusClosed
	default:
		return nil, invalidParam("invalid signoff_type %q", req.SignoffType)
	}

	signoff := models.MaintenanceSignoff{
		TicketID:    ticket.ID,
		SignedByID:  actorID,
		SignoffType: req.SignoffType,
		Rating:      req.Rating,
		Comments:    req.Comments,
	}
	ticket.Status = next
	if next == models.TicketStatusClosed {
		now := s.now()
		ticket.ClosedAt = &now
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&signoff).Error; err != nil {
			return err
		}
		return tx.Omit("Signoffs").Save(ticket).Error
	})
	if err != nil {
		return nil, err
	}
	ticket.Signoffs = append(ticket.Signoffs, signoff)
	s.notify([]uint{ticket.RequestedByID}, ticket, "Ticket signed off")
	return ticket, nil
}

// 9 CancelTicket 提交人或管理者取消，已关闭工单不可取消
func (s *MaintenanceService) CancelTicket(actorID, id uint) (*models.MaintenanceTicket, error) {
	ticket, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if ticket.RequestedByID != actorID && !s.canManage(actorID, ticket) {
		return nil, ErrForbidden
	}
	if ticket.Status == models.TicketStatusClosed || ticket.Status == models.TicketStatusCancelled {
		return nil, ErrTicketInvalidStatus
	}

	now := s.now()
	ticket.Status = models.TicketStatusCancelled
	ticket.ClosedAt = &now
	if err := s.DB.Omit("Signoffs").Save(ticket).Error; err != nil {
		return nil, err
	}
	s.notify(append([]uint{ticket.RequestedByID}, s.groupMembers(ticket.WorkingGroupID)...), ticket, "Ticket cancelled")
	return ticket, nil
}
