package payment

import (
	"go.uber.org/fx"

	"github.com/gammapace/backend/internal/config"
	"github.com/gammapace/backend/internal/payment/adapters/stripe"
	"github.com/gammapace/backend/internal/payment/domain"
	"github.com/gammapace/backend/internal/payment/repository"
	"github.com/gammapace/backend/internal/payment/service"
	"github.com/gammapace/backend/internal/payment/stripeapi"
)

var Module = fx.Module("payment.service",
	fx.Provide(newStripeClient),
	fx.Provide(fx.Annotate(
		newStripeAdapter,
		fx.As(new(domain.Verifier)),
		fx.As(new(domain.Parser)),
	)),
	fx.Provide(fx.Annotate(
		newReturnURL,
		fx.ResultTags(`name:"payment_return_url"`),
	)),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

func newStripeClient(cfg config.Config) *stripeapi.Client {
	return stripeapi.NewClient(cfg.StripeSecretKey, cfg.StripeAPIBaseURL)
}

func newStripeAdapter(cfg config.Config) *stripe.Adapter {
	return stripe.NewAdapter(cfg.StripeWebhookSecret)
}

func newReturnURL(cfg config.Config) string {
	return cfg.PaymentReturnURL
}
