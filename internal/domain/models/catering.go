package models

import "time"

// Catering order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusSubmitted = "submitted"
	OrderStatusConfirmed = "confirmed"
	OrderStatusAccepted  = "accepted"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusClosed    = "closed"
	OrderStatusCancelled = "cancelled"
)

// Delivery types
const (
	DeliveryImmediate = "immediate"
	DeliveryScheduled = "scheduled"
)

// CateringMenuItem 餐饮菜单项
type CateringMenuItem struct {
	BaseModel
	CommunityID       *uint   `gorm:"index" json:"community_id,omitempty"`
	Name              string  `gorm:"type:varchar(150);not null" json:"name"`
	Description       string  `gorm:"type:text" json:"description"`
	Category          string  `gorm:"type:varchar(50)" json:"category"`
	Price             float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	QuantityAvailable int     `gorm:"not null;default:0" json:"quantity_available"`
	IsActive          bool    `json:"is_active"`
	ImageURL          string  `gorm:"type:varchar(255)" json:"image_url,omitempty"`
}

// CateringOrder 餐饮订单，订单号格式 ORD-YYYY-NNNNNN
type CateringOrder struct {
	BaseModel
	OrderNumber   string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	HouseholdID   uint       `gorm:"index;not null" json:"household_id"`
	Status        string     `gorm:"type:varchar(20);not null;index" json:"status"`
	DeliveryType  string     `gorm:"type:varchar(20);not null" json:"delivery_type"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	TotalAmount   float64    `gorm:"type:decimal(10,2)" json:"total_amount"`
	Notes         string     `gorm:"type:text" json:"notes,omitempty"`
	TicketID      *uint      `json:"ticket_id,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	PreparedAt    *time.Time `json:"prepared_at,omitempty"`
	ReadyAt       *time.Time `json:"ready_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`

	Items []CateringOrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// CateringOrderItem 订单明细，名称与单价在下单时快照
type CateringOrderItem struct {
	BaseModel
	OrderID    uint    `gorm:"index;not null" json:"order_id"`
	MenuItemID uint    `json:"menu_item_id"`
	Name       string  `gorm:"type:varchar(150)" json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `gorm:"type:decimal(10,2)" json:"unit_price"`
	Subtotal   float64 `gorm:"type:decimal(10,2)" json:"subtotal"`
}

// IsValidOrderStatus reports whether s can be set through the admin status endpoint
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusSubmitted, OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivered, OrderStatusClosed, OrderStatusCancelled:
		return true
	}
	return false
}

// orderStatusRank 订单正向推进顺序
var orderStatusRank = map[string]int{
	OrderStatusPending:   0,
	OrderStatusSubmitted: 1,
	OrderStatusConfirmed: 2,
	OrderStatusAccepted:  2,
	OrderStatusPreparing: 3,
	OrderStatusReady:     4,
	OrderStatusDelivered: 5,
	OrderStatusClosed:    6,
}

// CanMoveOrder reports whether an order may go from one status to another.
// Orders only move forward; cancel is allowed until the order is closed.
func CanMoveOrder(from, to string) bool {
	if from == OrderStatusCancelled || from == OrderStatusClosed {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	fromRank, ok := orderStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := orderStatusRank[to]
	return ok && toRank > fromRank
}
