package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type StartRequest struct {
	UserID     snowflake.ID
	DeviceID   string
	DeviceName string
	Browser    string
	OS         string

	// Force overwrites a live session on another device. The caller is
	// expected to have shown the conflict to the user first.
	Force bool
}

// StartedSession carries the stored record plus the plaintext token.
// The token exists only in this response; the database holds its hash.
type StartedSession struct {
	Session ActiveSession
	Token   string
}

type Service interface {
	// Check reports whether a login from the given device would
	// conflict with a live session elsewhere.
	Check(ctx context.Context, userID snowflake.ID, deviceID string) (*DeviceInfo, error)

	Start(context.Context, StartRequest) (StartedSession, error)
	Heartbeat(ctx context.Context, token string) error
	Validate(ctx context.Context, token string) (ActiveSession, error)
	End(ctx context.Context, token string) error
}

var (
	ErrInvalidDevice  = errors.New("invalid_device")
	ErrSessionExpired = errors.New("session_expired")
	ErrNotFound       = errors.New("session_not_found")
)

// ConflictError reports that another device holds a live session. It
// carries that device's info so the user can decide whether to take
// over.
type ConflictError struct {
	Existing DeviceInfo
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("active session on device %s", e.Existing.DeviceID)
}
