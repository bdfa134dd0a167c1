package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/analytics/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, tag *domain.Tag) error {
	return db.WithContext(ctx).Create(tag).Error
}

func (r *repository) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Tag, error) {
	query := db.WithContext(ctx).Model(&domain.Tag{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var tags []domain.Tag
	if err := query.Order("created_at desc").Limit(limit).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
