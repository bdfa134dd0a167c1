package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Subscription statuses.
const (
	SubscriptionFree     = "free"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

type User struct {
	ID                 snowflake.ID   `gorm:"primaryKey" json:"id"`
	Email              string         `gorm:"not null" json:"email"`
	PasswordHash       string         `gorm:"not null" json:"-"`
	FirstName          string         `json:"first_name"`
	LastName           string         `json:"last_name"`
	ReferralCode       string         `gorm:"column:referral_code" json:"referral_code"`
	CouponCode         string         `gorm:"column:coupon_code" json:"coupon_code"`
	Country            string         `json:"country"`
	Currency           string         `json:"currency"`
	SubscriptionStatus string         `gorm:"not null;default:free" json:"subscription_status"`
	SubscriptionPlan   string         `json:"subscription_plan,omitempty"`
	SubscriptionStart  *time.Time     `json:"subscription_start,omitempty"`
	SubscriptionEnd    *time.Time     `json:"subscription_end,omitempty"`
	StripeCustomerID   string         `gorm:"column:stripe_customer_id" json:"-"`
	LocationHistory    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"location_history,omitempty"`
	LastLoginAt        *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Subscribed reports whether the user has a paid plan in effect at the
// given instant.
func (u *User) Subscribed(now time.Time) bool {
	if u.SubscriptionStatus != SubscriptionActive {
		return false
	}
	if u.SubscriptionEnd != nil && now.After(*u.SubscriptionEnd) {
		return false
	}
	return true
}

// LocationRecord is one entry in a user's location history.
type LocationRecord struct {
	Location any       `json:"location"`
	Type     string    `json:"type"`
	Datetime time.Time `json:"datetime"`
}
