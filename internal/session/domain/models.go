package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// StaleAfter is how long a session may sit idle before a login from
// another device may overwrite it without confirmation.
const StaleAfter = 24 * time.Hour

// ActiveSession is the single session record a user may hold. The user
// id is the primary key, so at most one session exists per user.
type ActiveSession struct {
	UserID       snowflake.ID `gorm:"primaryKey" json:"user_id"`
	DeviceID     string       `gorm:"not null" json:"device_id"`
	TokenHash    string       `gorm:"not null" json:"-"`
	DeviceName   string       `json:"device_name"`
	Browser      string       `json:"browser"`
	OS           string       `gorm:"column:os" json:"os"`
	StartedAt    time.Time    `gorm:"not null" json:"started_at"`
	LastActivity time.Time    `gorm:"not null" json:"last_activity"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Stale reports whether the session has been idle past the overwrite
// window.
func (s *ActiveSession) Stale(now time.Time) bool {
	return now.Sub(s.LastActivity) >= StaleAfter
}

// DeviceInfo is the subset of an existing session surfaced to a user
// whose login hit a conflict.
type DeviceInfo struct {
	DeviceID     string    `json:"device_id"`
	DeviceName   string    `json:"device_name"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *ActiveSession) Info() DeviceInfo {
	return DeviceInfo{
		DeviceID:     s.DeviceID,
		DeviceName:   s.DeviceName,
		Browser:      s.Browser,
		OS:           s.OS,
		LastActivity: s.LastActivity,
	}
}
