package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*ActiveSession, error)
	FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*ActiveSession, error)
	Insert(ctx context.Context, db *gorm.DB, session *ActiveSession) error

	// ReplaceIf overwrites the user's session only when the stored
	// record still matches the given device id and last activity. It
	// reports whether the write took effect.
	ReplaceIf(ctx context.Context, db *gorm.DB, session *ActiveSession, prevDeviceID string, prevLastActivity time.Time) (bool, error)

	// Touch advances last_activity for the session holding the token.
	Touch(ctx context.Context, db *gorm.DB, tokenHash string, now time.Time) (bool, error)

	DeleteByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) error
	DeleteByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
}
