package models

import "time"

// Join request targets
const (
	JoinTargetCommunity = "community"
	JoinTargetBuilding  = "building"
	JoinTargetHousehold = "household"
)

// Join request statuses
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// JoinRequest 用户申请加入社区/楼栋/住户
type JoinRequest struct {
	BaseModel
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	Type         string     `gorm:"type:varchar(20);index:idx_join_target;not null" json:"type"`
	TargetID     uint       `gorm:"index:idx_join_target;not null" json:"target_id"`
	Message      string     `gorm:"type:text" json:"message"`
	Status       string     `gorm:"type:varchar(20);index;default:pending" json:"status"`
	ReviewedByID *uint      `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsValidJoinTarget reports whether t is a joinable scope
func IsValidJoinTarget(t string) bool {
	switch t {
	case JoinTargetCommunity, JoinTargetBuilding, JoinTargetHousehold:
		return true
	}
	return false
}
