package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Webhook event types forwarded by the provider.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentSucceeded    = "invoice.payment_succeeded"
	EventPaymentFailed       = "invoice.payment_failed"
)

// PaymentEvent is a provider webhook normalized into a uniform shape.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	CustomerID      string
	CustomerEmail   string
	SubscriptionID  string
	PlanType        string
	Amount          int64
	Currency        string
	Status          string
	OccurredAt      time.Time
	RawPayload      []byte
}

// EventRecord is the persisted form of a processed webhook. The
// provider event id is unique, which makes redelivery idempotent.
type EventRecord struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProviderEventID  string            `gorm:"not null;uniqueIndex" json:"provider_event_id"`
	EventType        string            `gorm:"not null" json:"event_type"`
	CustomerEmail    string            `json:"customer_email,omitempty"`
	StripeCustomerID string            `gorm:"column:stripe_customer_id" json:"-"`
	PlanType         string            `json:"plan_type,omitempty"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency,omitempty"`
	Payload          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload,omitempty"`
	ReceivedAt       time.Time         `gorm:"not null" json:"received_at"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// CreateIntentRequest is the payment form submission.
type CreateIntentRequest struct {
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaymentMethodID string `json:"payment_method_id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	PlanType        string `json:"plan_type"`
	UserCountry     string `json:"user_country"`
}

type IntentSummary struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount,omitempty"`
	Currency     string `json:"currency,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

type CustomerSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SubscriptionData struct {
	PlanType   string    `json:"plan_type"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	AmountPaid int64     `json:"amount_paid"`
	Currency   string    `json:"currency"`
}

type CreateIntentResponse struct {
	Success          bool              `json:"success"`
	RequiresAction   bool              `json:"requires_action,omitempty"`
	PaymentIntent    *IntentSummary    `json:"payment_intent,omitempty"`
	Customer         *CustomerSummary  `json:"customer,omitempty"`
	SubscriptionData *SubscriptionData `json:"subscription_data,omitempty"`
}

// WebhookResult is the acknowledgement returned to the provider.
type WebhookResult struct {
	EventType string
	Handled   bool
}

// Provider error categories surfaced to the payment form.
const (
	ErrorTypeCard           = "card_error"
	ErrorTypeInvalidRequest = "invalid_request"
	ErrorTypeAPI            = "api_error"
)

// ProviderError is a categorized failure from the payment provider.
type ProviderError struct {
	Type        string
	Message     string
	DeclineCode string
}

func (e *ProviderError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.DeclineCode)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// IntentStatusError reports a confirmed intent that ended in a status
// the product cannot proceed from.
type IntentStatusError struct {
	Intent  IntentSummary
	Message string
}

func (e *IntentStatusError) Error() string {
	return fmt.Sprintf("payment intent %s in status %s", e.Intent.ID, e.Intent.Status)
}

var (
	ErrMissingFields    = errors.New("missing_required_fields")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
)
