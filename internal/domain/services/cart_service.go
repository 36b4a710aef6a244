package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
)

// cartTTL 购物车保留 24 小时
const cartTTL = 24 * time.Hour

func cartKey(userID uint) string {
	return fmt.Sprintf("catering:cart:%d", userID)
}

// InterfaceCartService 定义购物车服务接口
type InterfaceCartService interface {
	GetCart(userID uint) (*Cart, error)
	AddItem(userID, menuItemID uint, quantity int) (*Cart, error)
	RemoveItem(userID, menuItemID uint) (*Cart, error)
	Clear(userID uint) error
}

// CartItem 购物车条目，名称与单价为加入时的快照
type CartItem struct {
	MenuItemID uint    `json:"menu_item_id"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
}

// Cart 购物车
type Cart struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

func (c *Cart) recalc() {
	c.Total = 0
	for _, it := range c.Items {
		c.Total += it.UnitPrice * float64(it.Quantity)
	}
}

// CartService 基于 Redis 的购物车
type CartService struct {
	DB    *gorm.DB
	Redis InterfaceRedisService
}

// NewCartService 创建购物车服务
func NewCartService(db *gorm.DB, redis InterfaceRedisService) InterfaceCartService {
	return &CartService{DB: db, Redis: redis}
}

// 1 GetCart 获取购物车，不存在时返回空车
func (s *CartService) GetCart(userID uint) (*Cart, error) {
	cart := &Cart{Items: []CartItem{}}
	if err := s.Redis.Get(cartKey(userID), cart); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return &Cart{Items: []CartItem{}}, nil
		}
		return nil, err
	}
	cart.recalc()
	return cart, nil
}

func (s *CartService) save(userID uint, cart *Cart) error {
	cart.recalc()
	if len(cart.Items) == 0 {
		return s.Redis.Delete(cartKey(userID))
	}
	return s.Redis.Set(cartKey(userID), cart, cartTTL)
}

// 2 AddItem 加入菜品，已存在时累加数量
func (s *CartService) AddItem(userID, menuItemID uint, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, invalidParam("quantity must be positive")
	}
	var menuItem models.CateringMenuItem
	if err := s.DB.First(&menuItem, menuItemID).Error; err != nil {
		return nil, notFoundAs(err, ErrMenuItemNotFound)
	}
	if !menuItem.IsActive {
		return nil, ErrMenuItemInactive
	}

	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range cart.Items {
		if cart.Items[i].MenuItemID == menuItemID {
			cart.Items[i].Quantity += quantity
			cart.Items[i].UnitPrice = menuItem.Price
			quantity = cart.Items[i].Quantity
			found = true
			break
		}
	}
	if quantity > menuItem.QuantityAvailable {
		return nil, ErrInsufficientStock
	}
	if !found {
		cart.Items = append(cart.Items, CartItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			UnitPrice:  menuItem.Price,
			Quantity:   quantity,
		})
	}
	if err := s.save(userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// 3 RemoveItem 移除菜品
func (s *CartService) RemoveItem(userID, menuItemID uint) (*Cart, error) {
	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if it.MenuItemID != menuItemID {
			kept = append(kept, it)
		}
	}
	cart.Items = kept
	if err := s.save(userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// 4 Clear 清空购物车
func (s *CartService) Clear(userID uint) error {
	return s.Redis.Delete(cartKey(userID))
}
