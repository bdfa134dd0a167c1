package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidEventType = errors.New("invalid_event_type")

type RecordRequest struct {
	UserID    snowflake.ID   `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	EventType string         `json:"event_type"`
	Page      string         `json:"page,omitempty"`
	Status    string         `json:"status,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Tag, error)
	List(ctx context.Context, filter ListFilter) ([]Tag, error)
}
