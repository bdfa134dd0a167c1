package domain

import (
	"context"
	"errors"
)

var (
	ErrMissingFields = errors.New("missing_admin_fields")
	ErrCouponTaken   = errors.New("coupon_code_taken")
	ErrNotFound      = errors.New("admin_not_found")
)

type CreateRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	CouponCode string `json:"coupon_code"`
	Role       string `json:"role"`
	Department string `json:"department"`
	CreatedBy  string `json:"created_by"`
}

// RoleStats summarizes the admin roster for the back office.
type RoleStats struct {
	TotalAdmins      int            `json:"total_admins"`
	ActiveAdmins     int            `json:"active_admins"`
	InactiveAdmins   int            `json:"inactive_admins"`
	RoleDistribution map[string]int `json:"role_distribution"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Admin, error)
	List(ctx context.Context) ([]Admin, error)
	GetByCoupon(ctx context.Context, couponCode string) (*Admin, error)
	Stats(ctx context.Context) (RoleStats, error)
}
