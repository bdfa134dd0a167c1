package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/geo"
	"github.com/gammapace/backend/internal/user/domain"
	"github.com/gammapace/backend/internal/user/repository"
	"github.com/gammapace/backend/pkg/db"
)

func newTestService(t *testing.T, clk clock.Clock) domain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
}

func TestSignup(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 14, 35, 0, 0, time.UTC))
	svc := newTestService(t, clk)

	user, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:     "Priya.Sharma@example.com",
		Password:  "correct-horse-battery",
		FirstName: "Priya",
		LastName:  "Sharma",
		Country:   "IN",
	})
	require.NoError(t, err)

	assert.Equal(t, "priya.sharma@example.com", user.Email)
	assert.Equal(t, "IN", user.Country)
	assert.Equal(t, "INR", user.Currency)
	assert.Equal(t, domain.SubscriptionFree, user.SubscriptionStatus)
	assert.Len(t, user.ReferralCode, 8)
	assert.Regexp(t, `^[A-Z0-9]{8}$`, user.ReferralCode)
	assert.Equal(t, "priy1435", user.CouponCode)
	assert.NotEqual(t, "correct-horse-battery", user.PasswordHash)
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(t, clock.NewSystemClock())

	_, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "not-an-email",
		Password: "long-enough-password",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "short@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService(t, clock.NewSystemClock())

	_, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "taken@example.com",
		Password: "first-password",
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "Taken@Example.com",
		Password: "second-password",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t, clock.NewSystemClock())

	created, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "alice@example.com", "correct-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(context.Background(), "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "whatever-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRecordLocation(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, clk)

	user, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "bob@example.com",
		Password: "some-long-password",
		Location: &geo.Location{City: "Toronto", Country: "Canada", CountryCode: "CA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "CA", user.Country)
	assert.Equal(t, "CAD", user.Currency)

	clk.Advance(time.Hour)
	err = svc.RecordLocation(context.Background(), user.ID, geo.Location{City: "Vancouver", CountryCode: "CA"}, "signin")
	require.NoError(t, err)

	reloaded, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)

	var history []domain.LocationRecord
	require.NoError(t, json.Unmarshal(reloaded.LocationHistory, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "signup", history[0].Type)
	assert.Equal(t, "signin", history[1].Type)
}

func TestApplySubscription(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, clk)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "carol@example.com",
		Password: "some-long-password",
	})
	require.NoError(t, err)

	start := clk.Now()
	end := start.AddDate(0, 0, 30)
	err = svc.ApplySubscription(context.Background(), "carol@example.com", domain.SubscriptionUpdate{
		Status: domain.SubscriptionActive,
		Plan:   "monthly",
		Start:  &start,
		End:    &end,
	})
	require.NoError(t, err)

	user, err := svc.GetByEmail(context.Background(), "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, user.SubscriptionStatus)
	assert.Equal(t, "monthly", user.SubscriptionPlan)
	assert.True(t, user.Subscribed(clk.Now()))

	clk.Advance(31 * 24 * time.Hour)
	assert.False(t, user.Subscribed(clk.Now()))

	err = svc.ApplySubscription(context.Background(), "nobody@example.com", domain.SubscriptionUpdate{
		Status: domain.SubscriptionActive,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachStripeCustomer(t *testing.T) {
	svc := newTestService(t, clock.NewSystemClock())

	_, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "dave@example.com",
		Password: "some-long-password",
	})
	require.NoError(t, err)

	require.NoError(t, svc.AttachStripeCustomer(context.Background(), "dave@example.com", "cus_123"))

	user, err := svc.GetByEmail(context.Background(), "dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", user.StripeCustomerID)

	// Re-attaching the same id is a no-op.
	require.NoError(t, svc.AttachStripeCustomer(context.Background(), "dave@example.com", "cus_123"))
}

func TestCouponCode(t *testing.T) {
	at := time.Date(2025, time.June, 2, 7, 5, 0, 0, time.UTC)
	assert.Equal(t, "al0705", newCouponCode("al@example.com", at))
	assert.Equal(t, "alex0705", newCouponCode("alexander@example.com", at))
}
