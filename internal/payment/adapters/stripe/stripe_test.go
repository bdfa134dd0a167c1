package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentdomain "github.com/gammapace/backend/internal/payment/domain"
)

const testSecret = "whsec_test"

func signedHeaders(t *testing.T, payload []byte, secret string) http.Header {
	t.Helper()

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, signature))
	return headers
}

func TestVerify(t *testing.T) {
	adapter := NewAdapter(testSecret)
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)

	err := adapter.Verify(context.Background(), payload, signedHeaders(t, payload, testSecret))
	assert.NoError(t, err)

	err = adapter.Verify(context.Background(), payload, signedHeaders(t, payload, "whsec_other"))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	err = adapter.Verify(context.Background(), payload, http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	headers := http.Header{}
	headers.Set("Stripe-Signature", "garbage")
	err = adapter.Verify(context.Background(), payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	// Tampering with the payload after signing breaks verification.
	tampered := append([]byte(nil), payload...)
	headers = signedHeaders(t, payload, testSecret)
	tampered[len(tampered)-2] = 'x'
	err = adapter.Verify(context.Background(), tampered, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestVerifyUnconfiguredSecret(t *testing.T) {
	adapter := NewAdapter("")
	payload := []byte(`{}`)
	err := adapter.Verify(context.Background(), payload, signedHeaders(t, payload, ""))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestParseCheckoutCompleted(t *testing.T) {
	adapter := NewAdapter(testSecret)
	payload := []byte(`{
		"id": "evt_checkout",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_1",
			"subscription": "sub_1",
			"amount_total": 2499,
			"currency": "cad",
			"metadata": {"plan_type": "monthly"},
			"customer_details": {"email": "Buyer@Example.com"}
		}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_checkout", event.ProviderEventID)
	assert.Equal(t, paymentdomain.EventCheckoutCompleted, event.Type)
	assert.Equal(t, "cus_1", event.CustomerID)
	assert.Equal(t, "buyer@example.com", event.CustomerEmail)
	assert.Equal(t, "sub_1", event.SubscriptionID)
	assert.Equal(t, "monthly", event.PlanType)
	assert.Equal(t, int64(2499), event.Amount)
	assert.Equal(t, "CAD", event.Currency)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), event.OccurredAt)
}

func TestParseSubscriptionEvents(t *testing.T) {
	adapter := NewAdapter(testSecret)
	for _, eventType := range []string{
		paymentdomain.EventSubscriptionCreated,
		paymentdomain.EventSubscriptionUpdated,
		paymentdomain.EventSubscriptionDeleted,
	} {
		payload := []byte(fmt.Sprintf(`{
			"id": "evt_sub",
			"type": %q,
			"created": 1700000000,
			"data": {"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "active",
				"metadata": {"plan_type": "weekly"}
			}}
		}`, eventType))

		event, err := adapter.Parse(context.Background(), payload)
		require.NoError(t, err, eventType)
		assert.Equal(t, eventType, event.Type)
		assert.Equal(t, "sub_1", event.SubscriptionID)
		assert.Equal(t, "active", event.Status)
		assert.Equal(t, "weekly", event.PlanType)
	}
}

func TestParseInvoiceEvents(t *testing.T) {
	adapter := NewAdapter(testSecret)

	succeeded := []byte(`{
		"id": "evt_inv",
		"type": "invoice.payment_succeeded",
		"created": 1700000000,
		"data": {"object": {
			"id": "in_1",
			"customer": "cus_1",
			"customer_email": "buyer@example.com",
			"subscription": "sub_1",
			"amount_paid": 2499,
			"amount_due": 2499,
			"currency": "usd"
		}}
	}`)
	event, err := adapter.Parse(context.Background(), succeeded)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.EventPaymentSucceeded, event.Type)
	assert.Equal(t, int64(2499), event.Amount)
	assert.Equal(t, "USD", event.Currency)

	failed := []byte(`{
		"id": "evt_inv_fail",
		"type": "invoice.payment_failed",
		"data": {"object": {
			"id": "in_2",
			"customer": "cus_1",
			"amount_paid": 0,
			"amount_due": 999,
			"currency": "usd"
		}}
	}`)
	event, err = adapter.Parse(context.Background(), failed)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.EventPaymentFailed, event.Type)
	assert.Equal(t, int64(999), event.Amount)
}

func TestParseIgnoredAndInvalid(t *testing.T) {
	adapter := NewAdapter(testSecret)

	_, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_x","type":"charge.refunded","data":{"object":{}}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = adapter.Parse(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	_, err = adapter.Parse(context.Background(), []byte(`{"type":"invoice.payment_succeeded"}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)

	_, err = adapter.Parse(context.Background(), []byte(`{"id":"evt_y","type":"invoice.payment_succeeded","data":{"object":{}}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)
}
