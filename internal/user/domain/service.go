package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/gammapace/backend/internal/geo"
)

type SignupRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Country   string
	Location  *geo.Location
}

// SubscriptionUpdate carries the subscription fields a payment event
// establishes. Nil pointers leave the current value untouched.
type SubscriptionUpdate struct {
	Status string
	Plan   string
	Start  *time.Time
	End    *time.Time
}

type Service interface {
	Signup(context.Context, SignupRequest) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	GetByID(ctx context.Context, id snowflake.ID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (User, error)
	RecordLocation(ctx context.Context, id snowflake.ID, loc geo.Location, eventType string) error
	ApplySubscription(ctx context.Context, email string, update SubscriptionUpdate) error
	AttachStripeCustomer(ctx context.Context, email, customerID string) error
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrEmailTaken         = errors.New("email_taken")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
)
