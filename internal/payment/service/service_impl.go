package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/observability/logger"
	"github.com/gammapace/backend/internal/observability/metrics"
	"github.com/gammapace/backend/internal/payment/domain"
	"github.com/gammapace/backend/internal/payment/stripeapi"
	"github.com/gammapace/backend/internal/plan"
	userdomain "github.com/gammapace/backend/internal/user/domain"
)

const (
	customerSource = "GammaPace IELTS"

	// Plans without a catalog entry are billed as a month, matching the
	// historical default.
	fallbackPlanDays = 30
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Client   *stripeapi.Client
	Verifier domain.Verifier
	Parser   domain.Parser
	Events   domain.EventRepository
	Users    userdomain.Service
	Catalog  *plan.Catalog
	Metrics  *metrics.Metrics `optional:"true"`

	ReturnURL string `name:"payment_return_url"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	client    *stripeapi.Client
	verifier  domain.Verifier
	parser    domain.Parser
	events    domain.EventRepository
	users     userdomain.Service
	catalog   *plan.Catalog
	metrics   *metrics.Metrics
	returnURL string
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		client:    p.Client,
		verifier:  p.Verifier,
		parser:    p.Parser,
		events:    p.Events,
		users:     p.Users,
		catalog:   p.Catalog,
		metrics:   p.Metrics,
		returnURL: p.ReturnURL,
	}
}

func (s *Service) CreateIntent(ctx context.Context, req domain.CreateIntentRequest) (domain.CreateIntentResponse, error) {
	if err := validateIntentRequest(req); err != nil {
		return domain.CreateIntentResponse{}, err
	}

	log := logger.WithContext(ctx, s.log)
	email := strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	country := strings.TrimSpace(req.UserCountry)
	if country == "" {
		country = "Unknown"
	}

	customer, err := s.client.FindCustomerByEmail(ctx, email)
	if err != nil {
		return domain.CreateIntentResponse{}, err
	}
	if customer == nil {
		customer, err = s.client.CreateCustomer(ctx, stripeapi.CreateCustomerParams{
			Name:  req.CustomerName,
			Email: email,
			Metadata: map[string]string{
				"plan_type":    req.PlanType,
				"user_country": country,
				"source":       customerSource,
			},
		})
		if err != nil {
			return domain.CreateIntentResponse{}, err
		}
	}

	if err := s.client.AttachPaymentMethod(ctx, req.PaymentMethodID, customer.ID); err != nil {
		return domain.CreateIntentResponse{}, err
	}
	if err := s.client.SetDefaultPaymentMethod(ctx, customer.ID, req.PaymentMethodID); err != nil {
		return domain.CreateIntentResponse{}, err
	}

	intent, err := s.client.CreateAndConfirmIntent(ctx, stripeapi.CreateIntentParams{
		Amount:          req.Amount,
		Currency:        req.Currency,
		CustomerID:      customer.ID,
		PaymentMethodID: req.PaymentMethodID,
		Description:     fmt.Sprintf("GammaPace IELTS %s Plan Subscription", req.PlanType),
		ReturnURL:       s.returnURL,
		Metadata: map[string]string{
			"plan_type":         req.PlanType,
			"customer_name":     req.CustomerName,
			"customer_email":    email,
			"user_country":      country,
			"subscription_type": "one_time_subscription",
		},
	})
	if err != nil {
		s.metrics.RecordPaymentIntent(ctx, "provider_error")
		return domain.CreateIntentResponse{}, err
	}

	s.metrics.RecordPaymentIntent(ctx, intent.Status)
	log.Info("payment intent confirmed",
		zap.String("intent_id", intent.ID),
		zap.String("status", intent.Status),
		zap.String("plan_type", req.PlanType),
	)

	switch intent.Status {
	case "succeeded":
		start := s.clock.Now()
		end := s.planEnd(start, req.PlanType)
		s.activateSubscription(ctx, email, customer.ID, req.PlanType, start, end)

		return domain.CreateIntentResponse{
			Success: true,
			PaymentIntent: &domain.IntentSummary{
				ID:       intent.ID,
				Status:   intent.Status,
				Amount:   intent.Amount,
				Currency: intent.Currency,
			},
			Customer: &domain.CustomerSummary{
				ID:    customer.ID,
				Email: customer.Email,
				Name:  customer.Name,
			},
			SubscriptionData: &domain.SubscriptionData{
				PlanType:   req.PlanType,
				StartDate:  start,
				EndDate:    end,
				AmountPaid: req.Amount,
				Currency:   req.Currency,
			},
		}, nil

	case "requires_action", "requires_source_action":
		return domain.CreateIntentResponse{
			Success:        false,
			RequiresAction: true,
			PaymentIntent: &domain.IntentSummary{
				ID:           intent.ID,
				Status:       intent.Status,
				ClientSecret: intent.ClientSecret,
			},
		}, nil

	case "requires_payment_method":
		return domain.CreateIntentResponse{}, &domain.IntentStatusError{
			Intent:  domain.IntentSummary{ID: intent.ID, Status: intent.Status},
			Message: "Payment failed. Please try a different payment method.",
		}

	default:
		return domain.CreateIntentResponse{}, &domain.IntentStatusError{
			Intent:  domain.IntentSummary{ID: intent.ID, Status: intent.Status},
			Message: fmt.Sprintf("Unexpected payment status: %s", intent.Status),
		}
	}
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (domain.WebhookResult, error) {
	if err := s.verifier.Verify(ctx, payload, headers); err != nil {
		s.metrics.RecordWebhookEvent(ctx, "unknown", "bad_signature")
		return domain.WebhookResult{}, err
	}

	event, err := s.parser.Parse(ctx, payload)
	if errors.Is(err, domain.ErrEventIgnored) {
		eventType := rawEventType(payload)
		s.metrics.RecordWebhookEvent(ctx, eventType, "ignored")
		return domain.WebhookResult{EventType: eventType, Handled: false}, nil
	}
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, "unknown", "invalid")
		return domain.WebhookResult{}, err
	}

	inserted, err := s.recordEvent(ctx, event)
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, event.Type, "store_error")
		return domain.WebhookResult{}, err
	}
	if !inserted {
		// Redelivery of an event we already processed.
		s.metrics.RecordWebhookEvent(ctx, event.Type, "duplicate")
		return domain.WebhookResult{EventType: event.Type, Handled: false}, nil
	}

	if err := s.applyEvent(ctx, event); err != nil {
		s.metrics.RecordWebhookEvent(ctx, event.Type, "apply_error")
		return domain.WebhookResult{}, err
	}

	s.metrics.RecordWebhookEvent(ctx, event.Type, "handled")
	return domain.WebhookResult{EventType: event.Type, Handled: true}, nil
}

func (s *Service) recordEvent(ctx context.Context, event *domain.PaymentEvent) (bool, error) {
	var payloadMap datatypes.JSONMap
	if err := json.Unmarshal(event.RawPayload, &payloadMap); err != nil {
		payloadMap = datatypes.JSONMap{}
	}

	record := domain.EventRecord{
		ID:               s.genID.Generate(),
		ProviderEventID:  event.ProviderEventID,
		EventType:        event.Type,
		CustomerEmail:    event.CustomerEmail,
		StripeCustomerID: event.CustomerID,
		PlanType:         event.PlanType,
		Amount:           event.Amount,
		Currency:         event.Currency,
		Payload:          payloadMap,
		ReceivedAt:       s.clock.Now(),
		CreatedAt:        s.clock.Now(),
	}
	return s.events.Insert(ctx, s.db, &record)
}

func (s *Service) applyEvent(ctx context.Context, event *domain.PaymentEvent) error {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("event_type", event.Type),
		zap.String("provider_event_id", event.ProviderEventID),
	)

	email := event.CustomerEmail
	if email == "" && event.CustomerID != "" {
		user, err := s.users.GetByStripeCustomer(ctx, event.CustomerID)
		if err == nil {
			email = user.Email
		}
	}
	if email == "" {
		log.Warn("no account resolvable for payment event",
			zap.String("stripe_customer_id", event.CustomerID),
		)
		return nil
	}

	var update userdomain.SubscriptionUpdate
	switch event.Type {
	case domain.EventCheckoutCompleted:
		start := event.OccurredAt
		end := s.planEnd(start, event.PlanType)
		update = userdomain.SubscriptionUpdate{
			Status: userdomain.SubscriptionActive,
			Plan:   event.PlanType,
			Start:  &start,
			End:    &end,
		}

	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated:
		update = userdomain.SubscriptionUpdate{
			Status: subscriptionStatus(event.Status),
			Plan:   event.PlanType,
		}

	case domain.EventSubscriptionDeleted:
		update = userdomain.SubscriptionUpdate{Status: userdomain.SubscriptionCanceled}

	case domain.EventPaymentSucceeded:
		start := event.OccurredAt
		end := s.planEnd(start, event.PlanType)
		update = userdomain.SubscriptionUpdate{
			Status: userdomain.SubscriptionActive,
			Plan:   event.PlanType,
			Start:  &start,
			End:    &end,
		}

	case domain.EventPaymentFailed:
		update = userdomain.SubscriptionUpdate{Status: userdomain.SubscriptionPastDue}

	default:
		return nil
	}

	if event.CustomerID != "" {
		if err := s.users.AttachStripeCustomer(ctx, email, event.CustomerID); err != nil && !errors.Is(err, userdomain.ErrNotFound) {
			return err
		}
	}

	err := s.users.ApplySubscription(ctx, email, update)
	if errors.Is(err, userdomain.ErrNotFound) {
		// The event record still stands; the account may be created
		// later and reconciled from it.
		log.Warn("payment event for unknown account", zap.String("email", email))
		return nil
	}
	return err
}

func (s *Service) activateSubscription(ctx context.Context, email, customerID, planType string, start, end time.Time) {
	log := logger.WithContext(ctx, s.log)

	if err := s.users.AttachStripeCustomer(ctx, email, customerID); err != nil && !errors.Is(err, userdomain.ErrNotFound) {
		log.Warn("failed to attach provider customer", zap.Error(err))
	}

	err := s.users.ApplySubscription(ctx, email, userdomain.SubscriptionUpdate{
		Status: userdomain.SubscriptionActive,
		Plan:   planType,
		Start:  &start,
		End:    &end,
	})
	if err != nil && !errors.Is(err, userdomain.ErrNotFound) {
		// The charge went through; subscription state will be repaired
		// by the following webhook.
		log.Warn("failed to apply subscription after payment", zap.Error(err))
	}
}

func (s *Service) planEnd(start time.Time, planType string) time.Time {
	end, err := s.catalog.EndDate(start, planType)
	if err != nil {
		return start.AddDate(0, 0, fallbackPlanDays)
	}
	return end
}

func validateIntentRequest(req domain.CreateIntentRequest) error {
	if req.Amount <= 0 ||
		strings.TrimSpace(req.Currency) == "" ||
		strings.TrimSpace(req.PaymentMethodID) == "" ||
		strings.TrimSpace(req.CustomerName) == "" ||
		strings.TrimSpace(req.CustomerEmail) == "" ||
		strings.TrimSpace(req.PlanType) == "" {
		return domain.ErrMissingFields
	}
	return nil
}

func subscriptionStatus(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "active", "trialing":
		return userdomain.SubscriptionActive
	case "past_due", "unpaid":
		return userdomain.SubscriptionPastDue
	case "canceled", "incomplete_expired":
		return userdomain.SubscriptionCanceled
	default:
		return ""
	}
}

func rawEventType(payload []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "unknown"
	}
	if strings.TrimSpace(envelope.Type) == "" {
		return "unknown"
	}
	return envelope.Type
}
