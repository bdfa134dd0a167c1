package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, admin *Admin) error
	List(ctx context.Context, db *gorm.DB) ([]Admin, error)
	FindByCouponCode(ctx context.Context, db *gorm.DB, couponCode string) (*Admin, error)
}
