package models

// User status values
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is an account that can log in. IsAdmin marks a super admin.
type User struct {
	BaseModel
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Email    string `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(100);not null" json:"-"` // Password not exposed in JSON
	Phone    string `gorm:"type:varchar(20)" json:"phone"`
	Avatar   string `gorm:"type:varchar(255)" json:"avatar,omitempty"`
	IsAdmin  bool   `gorm:"default:false" json:"is_admin"`
	Status   string `gorm:"type:varchar(20);default:'active'" json:"status"`
}
