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

// InterfaceItemService 定义物品服务接口
type InterfaceItemService interface {
	ListItems(actorID, householdID uint, filter ItemFilter, p models.PaginationQuery) ([]models.Item, ListResult, error)
	CreateItem(actorID, householdID uint, req *ItemRequest) (*models.Item, error)
	GetItem(actorID, id uint) (*models.Item, error)
	UpdateItem(actorID, id uint, req *ItemRequest) (*models.Item, error)
	DeleteItem(actorID, id uint) error
	Checkout(actorID, id uint, quantity int, reason string) (*models.Item, error)
	Move(actorID, id uint, room, cabinet string) (*models.Item, error)
	History(actorID, id uint) ([]models.ItemHistory, error)
	ApplySuggestion(actorID, id uint, category, description string) (*models.Item, error)
}

// ItemFilter 物品列表过滤条件
type ItemFilter struct {
	Search   string
	Category string
	LowStock bool
}

// ItemRequest 创建/更新物品请求
type ItemRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Quantity    *int       `json:"quantity"`
	MinQuantity *int       `json:"min_quantity"`
	Unit        string     `json:"unit"`
	Room        string     `json:"room"`
	Cabinet     string     `json:"cabinet"`
	Barcode     string     `json:"barcode"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

// ItemService 物品服务
type ItemService struct {
	DB            *gorm.DB
	Config        *config.Config
	Permissions   InterfacePermissionService
	Notifications InterfaceNotificationService
}

// NewItemService 创建物品服务
func NewItemService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, notifications InterfaceNotificationService) InterfaceItemService {
	return &ItemService{DB: db, Config: cfg, Permissions: perms, Notifications: notifications}
}

func (s *ItemService) load(actorID, id uint) (*models.Item, error) {
	var item models.Item
	if err := s.DB.First(&item, id).Error; err != nil {
		return nil, notFoundAs(err, ErrItemNotFound)
	}
	if !s.Permissions.CanAccessHousehold(actorID, item.HouseholdID) {
		return nil, ErrForbidden
	}
	return &item, nil
}

// canEdit 访客只读
func (s *ItemService) canEdit(actorID, householdID uint) bool {
	role := s.Permissions.HouseholdRole(actorID, householdID)
	if role != "" {
		return HasCapability(HouseholdPermissions(role), CapManageItems)
	}
	return s.Permissions.CanManageHousehold(actorID, householdID)
}

func writeHistory(tx *gorm.DB, item *models.Item, userID uint, action string, before int, from, to, notes string) error {
	return tx.Create(&models.ItemHistory{
		ItemID:         item.ID,
		UserID:         userID,
		Action:         action,
		QuantityBefore: before,
		QuantityAfter:  item.Quantity,
		FromLocation:   from,
		ToLocation:     to,
		Notes:          notes,
	}).Error
}

// notifyLowStock 库存由正常跌至最低库存以下时通知 OWNER/USER
func (s *ItemService) notifyLowStock(item *models.Item, wasLow bool) {
	if wasLow || !item.IsLowStock() || s.Notifications == nil {
		return
	}
	var userIDs []uint
	s.DB.Model(&models.HouseholdMember{}).
		Where("household_id = ? AND role IN ?", item.HouseholdID, []string{models.HouseholdRoleOwner, models.HouseholdRoleUser}).
		Pluck("user_id", &userIDs)

	_, err := s.Notifications.Notify(userIDs, NotificationInput{
		Type:        models.NotificationLowInventory,
		Title:       "Low inventory: " + item.Name,
		Message:     fmt.Sprintf("%s is down to %d %s (minimum %d)", item.Name, item.Quantity, item.Unit, item.MinQuantity),
		RelatedType: "item",
		RelatedID:   uintPtr(item.ID),
	})
	if err != nil {
		logger.Named("items").Warn("low inventory notification failed", zap.Uint("item_id", item.ID), zap.Error(err))
	}
}

// 1 ListItems 列出住户物品
func (s *ItemService) ListItems(actorID, householdID uint, filter ItemFilter, p models.PaginationQuery) ([]models.Item, ListResult, error) {
	var household models.Household
	if err := s.DB.Select("id").First(&household, householdID).Error; err != nil {
		return nil, ListResult{}, notFoundAs(err, ErrHouseholdNotFound)
	}
	if !s.Permissions.CanAccessHousehold(actorID, householdID) {
		return nil, ListResult{}, ErrForbidden
	}

	query := s.DB.Model(&models.Item{}).Where("household_id = ?", householdID)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ? OR barcode = ?", like, like, filter.Search)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.LowStock {
		query = query.Where("min_quantity > 0 AND quantity <= min_quantity")
	}
	var items []models.Item
	res, err := paginate(query, p, "name ASC, id ASC", &items)
	return items, res, err
}

// 2 CreateItem 创建物品并记录历史
func (s *ItemService) CreateItem(actorID, householdID uint, req *ItemRequest) (*models.Item, error) {
	var household models.Household
	if err := s.DB.Select("id").First(&household, householdID).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}
	if !s.canEdit(actorID, householdID) {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}

	item := &models.Item{
		HouseholdID: householdID,
		Name:        name,
		Description: req.Description,
		Category:    req.Category,
		Unit:        req.Unit,
		Room:        req.Room,
		Cabinet:     req.Cabinet,
		Barcode:     req.Barcode,
		ExpiryDate:  req.ExpiryDate,
		CreatedByID: actorID,
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.MinQuantity != nil {
		item.MinQuantity = *req.MinQuantity
	}
	if item.Quantity < 0 || item.MinQuantity < 0 {
		return nil, invalidParam("quantity must not be negative")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return writeHistory(tx, item, actorID, models.ItemActionCreated, 0, "", item.Location(), "")
	})
	if err != nil {
		return nil, err
	}
	s.notifyLowStock(item, false)
	return item, nil
}

// 3 GetItem 获取物品
func (s *ItemService) GetItem(actorID, id uint) (*models.Item, error) {
	return s.load(actorID, id)
}

// 4 UpdateItem 更新物品
func (s *ItemService) UpdateItem(actorID, id uint, req *ItemRequest) (*models.Item, error) {
	item, err := s.load(actorID, id)
	if err != nil {
		return nil, err
	}
	if !s.canEdit(actorID, item.HouseholdID) {
		return nil, ErrForbidden
	}

	wasLow := item.IsLowStock()
	before := item.Quantity
	fromLocation := item.Location()

	if name := strings.TrimSpace(req.Name); name != "" {
		item.Name = name
	}
	item.Description = req.Description
	item.Category = req.Category
	item.Unit = req.Unit
	item.Room = req.Room
	item.Cabinet = req.Cabinet
	item.Barcode = req.Barcode
	item.ExpiryDate = req.ExpiryDate
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.MinQuantity != nil {
		item.MinQuantity = *req.MinQuantity
	}
	if item.Quantity < 0 || item.MinQuantity < 0 {
		return nil, invalidParam("quantity must not be negative")
	}

	action := models.ItemActionUpdated
	if item.Quantity < before {
		action = models.ItemActionQuantityReduced
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return writeHistory(tx, item, actorID, action, before, fromLocation, item.Location(), "")
	})
	if err != nil {
		return nil, err
	}
	s.notifyLowStock(item, wasLow)
	return item, nil
}

// 5 DeleteItem 删除物品，历史保留
func (s *ItemService) DeleteItem(actorID, id uint) error {
	item, err := s.load(actorID, id)
	if err != nil {
		return err
	}
	if !s.canEdit(actorID, item.HouseholdID) {
		return ErrForbidden
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		before := item.Quantity
		item.Quantity = 0
		if err := writeHistory(tx, item, actorID, models.ItemActionDeleted, before, item.Location(), "", item.Name); err != nil {
			return err
		}
		return tx.Delete(&models.Item{}, id).Error
	})
}

// 6 Checkout 取出物品，数量不能超过库存
func (s *ItemService) Checkout(actorID, id uint, quantity int, reason string) (*models.Item, error) {
	item, err := s.load(actorID, id)
	if err != nil {
		return nil, err
	}
	if !s.canEdit(actorID, item.HouseholdID) {
		return nil, ErrForbidden
	}
	if quantity <= 0 {
		return nil, invalidParam("quantity must be positive")
	}
	if quantity > item.Quantity {
		return nil, ErrInsufficientQuantity
	}

	wasLow := item.IsLowStock()
	before := item.Quantity
	item.Quantity -= quantity

	notes := strings.TrimSpace(reason)
	if notes == "" {
		notes = "Checked out"
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// 条件更新防止并发超取
		res := tx.Model(&models.Item{}).
			Where("id = ? AND quantity >= ?", id, quantity).
			Update("quantity", gorm.Expr("quantity - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientQuantity
		}
		return writeHistory(tx, item, actorID, models.ItemActionCheckout, before, item.Location(), "", notes)
	})
	if err != nil {
		return nil, err
	}
	s.notifyLowStock(item, wasLow)
	return item, nil
}

// 7 Move 移动物品位置
func (s *ItemService) Move(actorID, id uint, room, cabinet string) (*models.Item, error) {
	item, err := s.load(actorID, id)
	if err != nil {
		return nil, err
	}
	if !s.canEdit(actorID, item.HouseholdID) {
		return nil, ErrForbidden
	}
	if room == "" && cabinet == "" {
		return nil, invalidParam("room or cabinet is required")
	}

	from := item.Location()
	item.Room = room
	item.Cabinet = cabinet
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(item).Updates(map[string]interface{}{"room": room, "cabinet": cabinet}).Error; err != nil {
			return err
		}
		return writeHistory(tx, item, actorID, models.ItemActionMoved, item.Quantity, from, item.Location(), "")
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// 8 History 物品历史（新到旧）
func (s *ItemService) History(actorID, id uint) ([]models.ItemHistory, error) {
	if _, err := s.load(actorID, id); err != nil {
		return nil, err
	}
	var list []models.ItemHistory
	err := s.DB.Preload("User").Where("item_id = ?", id).Order("id DESC").Find(&list).Error
	return list, err
}

// 9 ApplySuggestion 写入 AI 建议的分类与描述
func (s *ItemService) ApplySuggestion(actorID, id uint, category, description string) (*models.Item, error) {
	item, err := s.load(actorID, id)
	if err != nil {
		return nil, err
	}
	if !s.canEdit(actorID, item.HouseholdID) {
		return nil, ErrForbidden
	}
	updates := map[string]interface{}{}
	if category != "" {
		updates["category"] = category
		item.Category = category
	}
	if description != "" {
		updates["description"] = description
		item.Description = description
	}
	if len(updates) == 0 {
		return item, nil
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(item).Updates(updates).Error; err != nil {
			return err
		}
		return writeHistory(tx, item, actorID, models.ItemActionUpdated, item.Quantity, "", "", "AI suggestion applied")
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
