package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/admin/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, admin *domain.Admin) error {
	return db.WithContext(ctx).Create(admin).Error
}

func (r *repository) List(ctx context.Context, db *gorm.DB) ([]domain.Admin, error) {
	var admins []domain.Admin
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&admins).Error
	if err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *repository) FindByCouponCode(ctx context.Context, db *gorm.DB, couponCode string) (*domain.Admin, error) {
	var admin domain.Admin
	err := db.WithContext(ctx).
		Where("coupon_code = ?", couponCode).
		First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
