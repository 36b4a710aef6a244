package models

import "time"

// BaseModel carries the primary key and audit timestamps shared by every table
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaginationQuery 分页查询参数
type PaginationQuery struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize clamps page to >= 1 and page size to 1..100 (default 10)
func (q PaginationQuery) Normalize() PaginationQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 10
	}
	return q
}

// Offset returns the row offset for the page
func (q PaginationQuery) Offset() int {
	n := q.Normalize()
	return (n.Page - 1) * n.PageSize
}

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Community{},
		&CommunityMember{},
		&Building{},
		&BuildingMember{},
		&Household{},
		&HouseholdMember{},
		&WorkingGroup{},
		&WorkingGroupMember{},
		&WorkingGroupPermission{},
		&Item{},
		&ItemHistory{},
		&MaintenanceTicket{},
		&MaintenanceSignoff{},
		&WorkflowType{},
		&WorkflowTemplate{},
		&WorkflowTemplateStep{},
		&Workflow{},
		&WorkflowStep{},
		&WorkflowTask{},
		&WorkflowTaskLog{},
		&Conversation{},
		&Message{},
		&CallSession{},
		&DoorBell{},
		&DoorBellCallSession{},
		&DoorAccessLog{},
		&Notification{},
		&IoTDevice{},
		&DeviceCommandLog{},
		&CateringMenuItem{},
		&CateringOrder{},
		&CateringOrderItem{},
		&Announcement{},
		&AnnouncementRead{},
		&JoinRequest{},
	}
}
