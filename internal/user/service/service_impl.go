package service

import (
	"context"
	"encoding/json"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/currency"
	"github.com/gammapace/backend/internal/geo"
	"github.com/gammapace/backend/internal/observability/logger"
	"github.com/gammapace/backend/internal/user/domain"
)

const (
	minPasswordLength = 8

	// Location history is append-only but bounded so a long-lived
	// account does not grow a row without limit.
	maxLocationRecords = 50
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
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.User{}, domain.ErrInvalidEmail
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return domain.User{}, domain.ErrInvalidPassword
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		return domain.User{}, domain.ErrEmailTaken
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	referral, err := newReferralCode()
	if err != nil {
		return domain.User{}, err
	}

	now := s.clock.Now()
	country := strings.TrimSpace(req.Country)

	history := []domain.LocationRecord{}
	if req.Location != nil {
		history = append(history, domain.LocationRecord{
			Location: req.Location,
			Type:     "signup",
			Datetime: now,
		})
		if country == "" {
			country = req.Location.CountryCode
		}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:                 s.genID.Generate(),
		Email:              email,
		PasswordHash:       hashed,
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		ReferralCode:       referral,
		CouponCode:         newCouponCode(email, now),
		Country:            country,
		Currency:           currency.ForCountry(country),
		SubscriptionStatus: domain.SubscriptionFree,
		LocationHistory:    historyJSON,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		return domain.User{}, err
	}

	s.log.Info("user signed up",
		zap.String("user_id", user.ID.String()),
		zap.String("country", user.Country),
		zap.String("currency", user.Currency),
	)
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, s.db, normalized)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil || !verifyPassword(password, user.PasswordHash) {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	now := s.clock.Now()
	user.LastLoginAt = &now
	if err := s.repo.Update(ctx, s.db, user); err != nil {
		// Login timestamp is bookkeeping; the credentials already checked out.
		logger.WithContext(ctx, s.log).Warn("failed to record last login", zap.Error(err))
	}
	return *user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) GetByStripeCustomer(ctx context.Context, customerID string) (domain.User, error) {
	user, err := s.repo.FindByStripeCustomerID(ctx, s.db, customerID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) RecordLocation(ctx context.Context, id snowflake.ID, loc geo.Location, eventType string) error {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}

	var history []domain.LocationRecord
	if len(user.LocationHistory) > 0 {
		if err := json.Unmarshal(user.LocationHistory, &history); err != nil {
			s.log.Warn("resetting corrupt location history",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
			history = nil
		}
	}

	history = append(history, domain.LocationRecord{
		Location: loc,
		Type:     eventType,
		Datetime: s.clock.Now(),
	})
	if len(history) > maxLocationRecords {
		history = history[len(history)-maxLocationRecords:]
	}

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return err
	}
	user.LocationHistory = historyJSON
	user.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, s.db, user)
}

func (s *Service) ApplySubscription(ctx context.Context, email string, update domain.SubscriptionUpdate) error {
	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}

	if update.Status != "" {
		user.SubscriptionStatus = update.Status
	}
	if update.Plan != "" {
		user.SubscriptionPlan = update.Plan
	}
	if update.Start != nil {
		user.SubscriptionStart = update.Start
	}
	if update.End != nil {
		user.SubscriptionEnd = update.End
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, user); err != nil {
		return err
	}

	s.log.Info("subscription updated",
		zap.String("user_id", user.ID.String()),
		zap.String("status", user.SubscriptionStatus),
		zap.String("plan", user.SubscriptionPlan),
	)
	return nil
}

func (s *Service) AttachStripeCustomer(ctx context.Context, email, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil
	}

	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if user.StripeCustomerID == customerID {
		return nil
	}

	user.StripeCustomerID = customerID
	user.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, s.db, user)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
