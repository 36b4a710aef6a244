package models

import "time"

// Item history actions
const (
	ItemActionCreated         = "created"
	ItemActionUpdated         = "updated"
	ItemActionCheckout        = "checkout"
	ItemActionMoved           = "moved"
	ItemActionQuantityReduced = "quantity_reduced"
	ItemActionDeleted         = "deleted"
)

// Item 住户物品库存
type Item struct {
	BaseModel
	HouseholdID uint       `gorm:"index;not null" json:"household_id"`
	Name        string     `gorm:"type:varchar(150);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"type:varchar(50)" json:"category"`
	Quantity    int        `gorm:"not null;default:0" json:"quantity"`
	MinQuantity int        `gorm:"default:0" json:"min_quantity"`
	Unit        string     `gorm:"type:varchar(20)" json:"unit"`
	Room        string     `gorm:"type:varchar(50)" json:"room"`
	Cabinet     string     `gorm:"type:varchar(50)" json:"cabinet"`
	Barcode     string     `gorm:"type:varchar(64);index" json:"barcode,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	CreatedByID uint       `json:"created_by_id"`
}

// Location formats room and cabinet as a single label
func (i *Item) Location() string {
	if i.Cabinet == "" {
		return i.Room
	}
	if i.Room == "" {
		return i.Cabinet
	}
	return i.Room + "/" + i.Cabinet
}

// IsLowStock reports whether quantity is at or below the configured minimum
func (i *Item) IsLowStock() bool {
	return i.MinQuantity > 0 && i.Quantity <= i.MinQuantity
}

// ItemHistory 物品变更记录
type ItemHistory struct {
	BaseModel
	ItemID         uint   `gorm:"index;not null" json:"item_id"`
	UserID         uint   `json:"user_id"`
	Action         string `gorm:"type:varchar(30);not null" json:"action"`
	QuantityBefore int    `json:"quantity_before"`
	QuantityAfter  int    `json:"quantity_after"`
	FromLocation   string `gorm:"type:varchar(100)" json:"from_location,omitempty"`
	ToLocation     string `gorm:"type:varchar(100)" json:"to_location,omitempty"`
	Notes          string `gorm:"type:text" json:"notes,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
