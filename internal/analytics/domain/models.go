package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Tag is one append-only analytics event. Records are never updated;
// cleanup is a manual operation outside the write path.
type Tag struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID      `gorm:"index" json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	EventType string            `gorm:"index;not null" json:"event_type"`
	Page      string            `json:"page,omitempty"`
	Status    string            `json:"status,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}
