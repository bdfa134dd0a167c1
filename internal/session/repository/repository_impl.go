package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/session/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.ActiveSession, error) {
	var session domain.ActiveSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.ActiveSession, error) {
	var session domain.ActiveSession
	err := db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *domain.ActiveSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) ReplaceIf(ctx context.Context, db *gorm.DB, session *domain.ActiveSession, prevDeviceID string, prevLastActivity time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.ActiveSession{}).
		Where("user_id = ? AND device_id = ? AND last_activity = ?",
			session.UserID, prevDeviceID, prevLastActivity).
		Updates(map[string]any{
			"device_id":     session.DeviceID,
			"token_hash":    session.TokenHash,
			"device_name":   session.DeviceName,
			"browser":       session.Browser,
			"os":            session.OS,
			"started_at":    session.StartedAt,
			"last_activity": session.LastActivity,
			"updated_at":    session.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Touch(ctx context.Context, db *gorm.DB, tokenHash string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.ActiveSession{}).
		Where("token_hash = ?", tokenHash).
		Updates(map[string]any{
			"last_activity": now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// MySQL reports zero affected rows for an update that changes no
	// column values, which happens when two heartbeats land on the same
	// timestamp. Confirm the row is really gone before reporting a miss.
	session, err := r.FindByTokenHash(ctx, db, tokenHash)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

func (r *repo) DeleteByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) error {
	return db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&domain.ActiveSession{}).Error
}

func (r *repo) DeleteByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.ActiveSession{}).Error
}
