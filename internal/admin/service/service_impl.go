package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/admin/domain"
	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/observability/logger"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("admin.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Admin, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	couponCode := strings.TrimSpace(req.CouponCode)
	role := strings.TrimSpace(req.Role)
	if name == "" || email == "" || couponCode == "" || role == "" {
		return nil, domain.ErrMissingFields
	}

	existing, err := s.repo.FindByCouponCode(ctx, s.db, couponCode)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrCouponTaken
	}

	department := strings.TrimSpace(req.Department)
	if department == "" {
		department = domain.DefaultDepartment
	}
	createdBy := strings.TrimSpace(req.CreatedBy)
	if createdBy == "" {
		createdBy = "system"
	}

	admin := domain.Admin{
		ID:         s.genID.Generate(),
		Name:       name,
		Email:      email,
		CouponCode: couponCode,
		Role:       role,
		Department: department,
		Status:     domain.StatusActive,
		CreatedBy:  createdBy,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &admin); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("admin created",
		zap.String("coupon_code", admin.CouponCode),
		zap.String("role", admin.Role),
	)
	return &admin, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Admin, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) GetByCoupon(ctx context.Context, couponCode string) (*domain.Admin, error) {
	couponCode = strings.TrimSpace(couponCode)
	if couponCode == "" {
		return nil, domain.ErrMissingFields
	}

	admin, err := s.repo.FindByCouponCode(ctx, s.db, couponCode)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, domain.ErrNotFound
	}
	return admin, nil
}

func (s *Service) Stats(ctx context.Context) (domain.RoleStats, error) {
	admins, err := s.repo.List(ctx, s.db)
	if err != nil {
		return domain.RoleStats{}, err
	}

	stats := domain.RoleStats{
		TotalAdmins:      len(admins),
		RoleDistribution: map[string]int{},
	}
	for _, admin := range admins {
		stats.RoleDistribution[admin.Role]++
		switch admin.Status {
		case domain.StatusActive:
			stats.ActiveAdmins++
		case domain.StatusInactive:
			stats.InactiveAdmins++
		}
	}
	return stats, nil
}
