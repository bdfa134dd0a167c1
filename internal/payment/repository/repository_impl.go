package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gammapace/backend/internal/payment/domain"
)

type eventRepo struct{}

func Provide() domain.EventRepository {
	return &eventRepo{}
}

func (r *eventRepo) Insert(ctx context.Context, db *gorm.DB, record *domain.EventRecord) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *eventRepo) FindByProviderEventID(ctx context.Context, db *gorm.DB, providerEventID string) (*domain.EventRecord, error) {
	var record domain.EventRecord
	err := db.WithContext(ctx).
		Where("provider_event_id = ?", providerEventID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *eventRepo) ListByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]domain.EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []domain.EventRecord
	err := db.WithContext(ctx).
		Where("customer_email = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("received_at desc, id desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
