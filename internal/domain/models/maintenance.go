package models

import "time"

// Ticket categories
const (
	TicketCategoryBuildingMaintenance = "BUILDING_MAINTENANCE"
	TicketCategoryHouseCleaning       = "HOUSE_CLEANING"
	TicketCategoryFoodOrder           = "FOOD_ORDER"
	TicketCategoryOther               = "OTHER"
)

// Ticket statuses
const (
	TicketStatusPendingEvaluation   = "PENDING_EVALUATION"
	TicketStatusEvaluated           = "EVALUATED"
	TicketStatusAssigned            = "ASSIGNED"
	TicketStatusInProgress          = "IN_PROGRESS"
	TicketStatusWorkCompleted       = "WORK_COMPLETED"
	TicketStatusSignedOffByCrew     = "SIGNED_OFF_BY_CREW"
	TicketStatusSignedOffBySupplier = "SIGNED_OFF_BY_SUPPLIER"
	TicketStatusClosed              = "CLOSED"
	TicketStatusCancelled           = "CANCELLED"
)

// Sign-off types
const (
	SignoffCrewLead     = "CREW_LEAD"
	SignoffSupplierLead = "SUPPLIER_LEAD"
	SignoffHousehold    = "HOUSEHOLD"
)

// Priorities shared by tickets and workflows
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// MaintenanceTicket 维修/服务工单
type MaintenanceTicket struct {
	BaseModel
	TicketNumber    string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"ticket_number"` // MT-YYYYMMDD-NNNN
	HouseholdID     uint       `gorm:"index;not null" json:"household_id"`
	BuildingID      *uint      `gorm:"index" json:"building_id,omitempty"`
	CommunityID     *uint      `gorm:"index" json:"community_id,omitempty"`
	RequestedByID   uint       `json:"requested_by_id"`
	Title           string     `gorm:"type:varchar(200);not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	Category        string     `gorm:"type:varchar(30);not null" json:"category"`
	Priority        string     `gorm:"type:varchar(20);not null" json:"priority"`
	Status          string     `gorm:"type:varchar(30);not null;index" json:"status"`
	Location        string     `gorm:"type:varchar(150)" json:"location"`
	AssignedToID    *uint      `json:"assigned_to_id,omitempty"`
	WorkingGroupID  *uint      `json:"working_group_id,omitempty"`
	CateringOrderID *uint      `json:"catering_order_id,omitempty"`
	EvaluatedAt     *time.Time `json:"evaluated_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`

	Signoffs []MaintenanceSignoff `gorm:"foreignKey:TicketID" json:"signoffs,omitempty"`
}

// MaintenanceSignoff 工单签核
type MaintenanceSignoff struct {
	BaseModel
	TicketID    uint   `gorm:"index;not null" json:"ticket_id"`
	SignedByID  uint   `json:"signed_by_id"`
	SignoffType string `gorm:"type:varchar(20);not null" json:"signoff_type"`
	Rating      int    `json:"rating"`
	Comments    string `gorm:"type:text" json:"comments"`
}

// IsValidTicketCategory reports whether c is a known category
func IsValidTicketCategory(c string) bool {
	switch c {
	case TicketCategoryBuildingMaintenance, TicketCategoryHouseCleaning, TicketCategoryFoodOrder, TicketCategoryOther:
		return true
	}
	return false
}

// IsValidPriority reports whether p is a known priority
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
