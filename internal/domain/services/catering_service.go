package services

import (
	"errors"
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

// InterfaceCateringService 定义餐饮服务接口
type InterfaceCateringService interface {
	ListMenu(filter MenuFilter) ([]models.CateringMenuItem, error)
	GetMenuItem(id uint) (*models.CateringMenuItem, error)
	CreateMenuItem(actorID uint, req *MenuItemRequest) (*models.CateringMenuItem, error)
	UpdateMenuItem(actorID, id uint, req *MenuItemRequest) (*models.CateringMenuItem, error)
	DeleteMenuItem(actorID, id uint) error
	PlaceOrder(actorID uint, req *OrderRequest) (*models.CateringOrder, error)
	ListOrders(actorID uint, filter OrderFilter, p models.PaginationQuery) ([]models.CateringOrder, ListResult, error)
	GetOrder(actorID, id uint) (*models.CateringOrder, error)
	UpdateOrderStatus(actorID, id uint, status string) (*models.CateringOrder, error)
	CreateKitchenWorkOrder(actorID, id uint) (*models.MaintenanceTicket, bool, error)
	ExportOrders(actorID uint, filter OrderFilter) ([]byte, error)
}

// MenuFilter 菜单过滤条件
type MenuFilter struct {
	CommunityID uint
	ActiveOnly  bool
	Category    string
}

// MenuItemRequest 创建/更新菜品请求
type MenuItemRequest struct {
	CommunityID       *uint    `json:"community_id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Price             *float64 `json:"price"`
	QuantityAvailable *int     `json:"quantity_available"`
	IsActive          *bool    `json:"is_active"`
	ImageURL          string   `json:"image_url"`
}

// OrderRequest 下单请求
type OrderRequest struct {
	HouseholdID   uint       `json:"household_id" binding:"required"`
	DeliveryType  string     `json:"delivery_type"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	Notes         string     `json:"notes"`
}

// OrderFilter 订单过滤条件；All 为运营视图
type OrderFilter struct {
	HouseholdID uint
	Status      string
	All         bool
}

// CateringService 餐饮服务
type CateringService struct {
	DB            *gorm.DB
	Config        *config.Config
	Permissions   InterfacePermissionService
	Notifications InterfaceNotificationService
	Maintenance   InterfaceMaintenanceService
	Cart          InterfaceCartService
	now           func() time.Time
}

// NewCateringService 创建餐饮服务
func NewCateringService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, notifications InterfaceNotificationService,
	maintenance InterfaceMaintenanceService, cart InterfaceCartService) InterfaceCateringService {
	return &CateringService{
		DB:            db,
		Config:        cfg,
		Permissions:   perms,
		Notifications: notifications,
		Maintenance:   maintenance,
		Cart:          cart,
		now:           time.Now,
	}
}

func (s *CateringService) canManageMenu(actorID uint, communityID *uint) bool {
	if communityID == nil {
		return s.Permissions.IsSuperAdmin(actorID)
	}
	return s.Permissions.CanManageCommunity(actorID, *communityID)
}

// cateringGroupCommunities 用户所在餐饮工作组的社区
func (s *CateringService) cateringGroupCommunities(actorID uint) []uint {
	var ids []uint
	s.DB.Model(&models.WorkingGroup{}).
		Joins("JOIN working_group_members ON working_group_members.working_group_id = working_groups.id").
		Where("working_group_members.user_id = ? AND working_groups.type = ?", actorID, models.WorkingGroupCatering).
		Distinct().
		Pluck("working_groups.community_id", &ids)
	return ids
}

func (s *CateringService) householdCommunity(householdID uint) *uint {
	var household models.Household
	if err := s.DB.Preload("Building").First(&household, householdID).Error; err != nil || household.Building == nil {
		return nil
	}
	return uintPtr(household.Building.CommunityID)
}

// canOperate 超级管理员、社区管理者或社区餐饮组成员可处理订单
func (s *CateringService) canOperate(actorID uint, order *models.CateringOrder) bool {
	if s.Permissions.IsSuperAdmin(actorID) {
		return true
	}
	communityID := s.householdCommunity(order.HouseholdID)
	if communityID == nil {
		return false
	}
	if s.Permissions.CanManageCommunity(actorID, *communityID) {
		return true
	}
	return containsUint(s.cateringGroupCommunities(actorID), *communityID)
}

// 1 ListMenu 列出菜单，指定社区时包含全局菜品
func (s *CateringService) ListMenu(filter MenuFilter) ([]models.CateringMenuItem, error) {
	query := s.DB.Model(&models.CateringMenuItem{})
	if filter.CommunityID != 0 {
		query = query.Where("community_id = ? OR community_id IS NULL", filter.CommunityID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	var list []models.CateringMenuItem
	err := query.Order("category ASC, name ASC").Find(&list).Error
	return list, err
}

// 2 GetMenuItem 获取菜品
func (s *CateringService) GetMenuItem(id uint) (*models.CateringMenuItem, error) {
	var item models.CateringMenuItem
	if err := s.DB.First(&item, id).Error; err != nil {
		return nil, notFoundAs(err, ErrMenuItemNotFound)
	}
	return &item, nil
}

// 3 CreateMenuItem 创建菜品
func (s *CateringService) CreateMenuItem(actorID uint, req *MenuItemRequest) (*models.CateringMenuItem, error) {
	if !s.canManageMenu(actorID, req.CommunityID) {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}
	if req.Price == nil || *req.Price < 0 {
		return nil, invalidParam("price must be zero or more")
	}
	item := &models.CateringMenuItem{
		CommunityID: req.CommunityID,
		Name:        name,
		Description: req.Description,
		Category:    req.Category,
		Price:       *req.Price,
		IsActive:    true,
		ImageURL:    req.ImageURL,
	}
	if req.QuantityAvailable != nil {
		if *req.QuantityAvailable < 0 {
			return nil, invalidParam("quantity_available must be zero or more")
		}
		item.QuantityAvailable = *req.QuantityAvailable
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if err := s.DB.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// 4 UpdateMenuItem 更新菜品
func (s *CateringService) UpdateMenuItem(actorID, id uint, req *MenuItemRequest) (*models.CateringMenuItem, error) {
	item, err := s.GetMenuItem(id)
	if err != nil {
		return nil, err
	}
	if !s.canManageMenu(actorID, item.CommunityID) {
		return nil, ErrForbidden
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		item.Name = name
	}
	if req.Description != "" {
		item.Description = req.Description
	}
	if req.Category != "" {
		item.Category = req.Category
	}
	if req.ImageURL != "" {
		item.ImageURL = req.ImageURL
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, invalidParam("price must be zero or more")
		}
		item.Price = *req.Price
	}
	if req.QuantityAvailable != nil {
		if *req.QuantityAvailable < 0 {
			return nil, invalidParam("quantity_available must be zero or more")
		}
		item.QuantityAvailable = *req.QuantityAvailable
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if err := s.DB.Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// 5 DeleteMenuItem 删除菜品，历史订单保留快照
func (s *CateringService) DeleteMenuItem(actorID, id uint) error {
	item, err := s.GetMenuItem(id)
	if err != nil {
		return err
	}
	if !s.canManageMenu(actorID, item.CommunityID) {
		return ErrForbidden
	}
	return s.DB.Delete(&models.CateringMenuItem{}, id).Error
}

// nextOrderNumber 生成 ORD-YYYY-NNNNNN，序号按年递增
func nextOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("ORD-%d-", now.Year())
	var last []string
	err := tx.Unscoped().Model(&models.CateringOrder{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &last).Error
	if err != nil {
		return "", err
	}
	seq := 1
	if len(last) > 0 {
		if n, convErr := strconv.Atoi(strings.TrimPrefix(last[0], prefix)); convErr == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%06d", prefix, seq), nil
}

// 6 PlaceOrder 购物车结算：校验菜品与库存，事务内扣减库存并生成订单
func (s *CateringService) PlaceOrder(actorID uint, req *OrderRequest) (*models.CateringOrder, error) {
	var household models.Household
	if err := s.DB.Select("id").First(&household, req.HouseholdID).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}
	if !s.Permissions.CanAccessHousehold(actorID, req.HouseholdID) {
		return nil, ErrForbidden
	}

	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = models.DeliveryImmediate
	}
	now := s.now()
	switch deliveryType {
	case models.DeliveryImmediate:
	case models.DeliveryScheduled:
		if req.ScheduledTime == nil || !req.ScheduledTime.After(now) {
			return nil, ErrInvalidScheduleTime
		}
	default:
		return nil, invalidParam("delivery_type must be immediate or scheduled")
	}

	cart, err := s.Cart.GetCart(actorID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	order := &models.CateringOrder{
		UserID:       actorID,
		HouseholdID:  req.HouseholdID,
		Status:       models.OrderStatusSubmitted,
		DeliveryType: deliveryType,
		Notes:        req.Notes,
	}
	if deliveryType == models.DeliveryScheduled {
		order.ScheduledTime = req.ScheduledTime
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for _, ci := range cart.Items {
			var menuItem models.CateringMenuItem
			if err := tx.First(&menuItem, ci.MenuItemID).Error; err != nil {
				return notFoundAs(err, ErrMenuItemNotFound)
			}
			if !menuItem.IsActive {
				return fmt.Errorf("%w: %s", ErrMenuItemInactive, menuItem.Name)
			}
			res := tx.Model(&models.CateringMenuItem{}).
				Where("id = ? AND quantity_available >= ?", menuItem.ID, ci.Quantity).
				Update("quantity_available", gorm.Expr("quantity_available - ?", ci.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, menuItem.Name)
			}
			subtotal := menuItem.Price * float64(ci.Quantity)
			order.TotalAmount += subtotal
			order.Items = append(order.Items, models.CateringOrderItem{
				MenuItemID: menuItem.ID,
				Name:       menuItem.Name,
				Quantity:   ci.Quantity,
				UnitPrice:  menuItem.Price,
				Subtotal:   subtotal,
			})
		}

		number, err := nextOrderNumber(tx, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return tx.Create(order).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: order number", ErrAlreadyExists)
		}
		return nil, err
	}

	if err := s.Cart.Clear(actorID); err != nil {
		logger.Named("catering").Warn("clear cart failed", zap.Uint("user_id", actorID), zap.Error(err))
	}
	s.notifyKitchen(order)
	return order, nil
}

// notifyKitchen 通知负责该住户的餐饮工作组
func (s *CateringService) notifyKitchen(order *models.CateringOrder) {
	var household models.Household
	if err := s.DB.Preload("Building").First(&household, order.HouseholdID).Error; err != nil || household.Building == nil {
		return
	}
	groupID := routingGroup(s.DB, household.Building.CommunityID, household.BuildingID, models.WorkingGroupCatering)
	if groupID == nil {
		return
	}
	var userIDs []uint
	s.DB.Model(&models.WorkingGroupMember{}).Where("working_group_id = ?", *groupID).Pluck("user_id", &userIDs)
	s.notify(userIDs, order, "New catering order "+order.OrderNumber)
}

func (s *CateringService) notify(userIDs []uint, order *models.CateringOrder, title string) {
	if len(userIDs) == 0 || s.Notifications == nil {
		return
	}
	_, err := s.Notifications.Notify(userIDs, NotificationInput{
		Type:        models.NotificationCateringOrder,
		Title:       title,
		Message:     fmt.Sprintf("Order %s is %s", order.OrderNumber, order.Status),
		RelatedType: "catering_order",
		RelatedID:   uintPtr(order.ID),
	})
	if err != nil {
		logger.Named("catering").Warn("order notification failed", zap.Uint("order_id", order.ID), zap.Error(err))
	}
}

// scopedOrders 按可见范围构建订单查询
func (s *CateringService) scopedOrders(actorID uint, filter OrderFilter) (*gorm.DB, error) {
	query := s.DB.Model(&models.CateringOrder{})
	switch {
	case filter.All:
		if !s.Permissions.IsSuperAdmin(actorID) {
			communities := s.cateringGroupCommunities(actorID)
			if len(communities) == 0 {
				return nil, ErrForbidden
			}
			households := s.DB.Model(&models.Household{}).
				Select("households.id").
				Joins("JOIN buildings ON buildings.id = households.building_id").
				Where("buildings.community_id IN ?", communities)
			query = query.Where("household_id IN (?)", households)
		}
	case filter.HouseholdID != 0:
		if !s.Permissions.CanAccessHousehold(actorID, filter.HouseholdID) {
			return nil, ErrForbidden
		}
		query = query.Where("household_id = ?", filter.HouseholdID)
	default:
		query = query.Where("user_id = ?", actorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query, nil
}

// 7 ListOrders 我的订单 / 住户订单 / 运营视图
func (s *CateringService) ListOrders(actorID uint, filter OrderFilter, p models.PaginationQuery) ([]models.CateringOrder, ListResult, error) {
	query, err := s.scopedOrders(actorID, filter)
	if err != nil {
		return nil, ListResult{}, err
	}
	var list []models.CateringOrder
	result, err := paginate(query.Preload("Items"), p, "created_at DESC, id DESC", &list)
	return list, result, err
}

func (s *CateringService) load(id uint) (*models.CateringOrder, error) {
	var order models.CateringOrder
	if err := s.DB.Preload("Items").First(&order, id).Error; err != nil {
		return nil, notFoundAs(err, ErrOrderNotFound)
	}
	return &order, nil
}

// 8 GetOrder 获取订单
func (s *CateringService) GetOrder(actorID, id uint) (*models.CateringOrder, error) {
	order, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actorID && !s.Permissions.CanAccessHousehold(actorID, order.HouseholdID) && !s.canOperate(actorID, order) {
		return nil, ErrForbidden
	}
	return order, nil
}

// stampOrder 按目标状态写入时间戳
func stampOrder(order *models.CateringOrder, status string, now time.Time) {
	switch status {
	case models.OrderStatusAccepted, models.OrderStatusConfirmed:
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
	case models.OrderStatusPreparing:
		if order.PreparedAt == nil {
			order.PreparedAt = &now
		}
	case models.OrderStatusReady:
		if order.ReadyAt == nil {
			order.ReadyAt = &now
		}
	case models.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
	case models.OrderStatusCancelled:
		order.CancelledAt = &now
	case models.OrderStatusClosed:
		if order.ClosedAt == nil {
			order.ClosedAt = &now
		}
	}
	order.Status = status
}

// 9 UpdateOrderStatus 运营更新订单状态；取消时归还库存
func (s *CateringService) UpdateOrderStatus(actorID, id uint, status string) (*models.CateringOrder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}
	order, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.canOperate(actorID, order) {
		return nil, ErrForbidden
	}
	if order.Status == status {
		return order, nil
	}
	if !models.CanMoveOrder(order.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidOrderStatus, order.Status, status)
	}

	from := order.Status
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		stampOrder(order, status, s.now())
		// 条件更新，并发修改时只有一方生效
		res := tx.Model(&models.CateringOrder{}).
			Where("id = ? AND status = ?", order.ID, from).
			Updates(map[string]interface{}{
				"status":       order.Status,
				"confirmed_at": order.ConfirmedAt,
				"prepared_at":  order.PreparedAt,
				"ready_at":     order.ReadyAt,
				"delivered_at": order.DeliveredAt,
				"cancelled_at": order.CancelledAt,
				"closed_at":    order.ClosedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order changed concurrently", ErrInvalidOrderStatus)
		}
		if status != models.OrderStatusCancelled {
			return nil
		}
		for _, it := range order.Items {
			err := tx.Model(&models.CateringMenuItem{}).
				Where("id = ?", it.MenuItemID).
				Update("quantity_available", gorm.Expr("quantity_available + ?", it.Quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify([]uint{order.UserID}, order, "Order "+order.OrderNumber+" updated")
	return order, nil
}

// 10 CreateKitchenWorkOrder 为订单创建厨房工单；已存在时返回原工单且 created 为 false
func (s *CateringService) CreateKitchenWorkOrder(actorID, id uint) (*models.MaintenanceTicket, bool, error) {
	order, err := s.load(id)
	if err != nil {
		return nil, false, err
	}
	if !s.canOperate(actorID, order) {
		return nil, false, ErrForbidden
	}
	if order.TicketID != nil {
		var existing models.MaintenanceTicket
		err := s.DB.First(&existing, *order.TicketID).Error
		if err == nil {
			return &existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}
	switch order.Status {
	case models.OrderStatusCancelled, models.OrderStatusClosed, models.OrderStatusDelivered:
		return nil, false, fmt.Errorf("%w: order is %s", ErrInvalidOrderStatus, order.Status)
	}

	var ticket *models.MaintenanceTicket
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		ticket, txErr = s.Maintenance.CreateKitchenTicket(tx, actorID, order)
		if txErr != nil {
			return txErr
		}
		order.TicketID = uintPtr(ticket.ID)
		switch order.Status {
		case models.OrderStatusPending, models.OrderStatusSubmitted, models.OrderStatusConfirmed, models.OrderStatusAccepted:
			stampOrder(order, models.OrderStatusPreparing, s.now())
		}
		return tx.Omit("Items").Save(order).Error
	})
	if err != nil {
		return nil, false, err
	}
	return ticket, true, nil
}
