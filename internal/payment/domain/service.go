package domain

import (
	"context"
	"net/http"
)

type Service interface {
	CreateIntent(context.Context, CreateIntentRequest) (CreateIntentResponse, error)

	// HandleWebhook verifies, parses, records and applies one provider
	// event. Redelivered events are acknowledged without reprocessing.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (WebhookResult, error)
}

// Verifier checks a webhook payload's provider signature.
type Verifier interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
}

// Parser normalizes a raw webhook payload.
type Parser interface {
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}
