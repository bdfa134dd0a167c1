package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// DefaultDepartment is assigned when an admin is created without one.
const DefaultDepartment = "General"

// Admin is a back-office account. The coupon code is the public handle
// students redeem; everything else is internal bookkeeping.
type Admin struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"not null" json:"name"`
	Email       string       `gorm:"uniqueIndex;not null" json:"email"`
	CouponCode  string       `gorm:"uniqueIndex;not null" json:"coupon_code"`
	Role        string       `gorm:"index;not null" json:"role"`
	Department  string       `gorm:"not null" json:"department"`
	Status      string       `gorm:"not null" json:"status"`
	CreatedBy   string       `json:"created_by"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (Admin) TableName() string {
	return "admins"
}
