package currency

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/config"
	"github.com/gammapace/backend/internal/observability/logger"
	"github.com/gammapace/backend/internal/observability/metrics"
)

// CacheTTL bounds how long a fetched rates snapshot is served before a
// refresh is attempted.
const CacheTTL = 2 * time.Hour

// ErrNoRates is returned when every provider in the chain fails.
var ErrNoRates = errors.New("no exchange rates available")

// Service converts base currency amounts into a customer's local
// currency. Rates come from an ordered provider chain fronted by a TTL
// cache.
type Service struct {
	baseCurrency string
	providers    []RateProvider
	cache        *RateCache
	log          *zap.Logger
	metrics      *metrics.Metrics
}

func NewService(baseCurrency string, providers []RateProvider, cache *RateCache, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		baseCurrency: strings.ToUpper(strings.TrimSpace(baseCurrency)),
		providers:    providers,
		cache:        cache,
		log:          log,
		metrics:      m,
	}
}

// NewServiceFromConfig assembles the default provider chain: the live
// rate API first, then the static fallback table.
func NewServiceFromConfig(cfg config.Config, pricing *config.PricingConfigHolder, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *Service {
	pcfg := pricing.Get()

	symbols := make([]string, 0, len(pcfg.FallbackRates))
	for code := range pcfg.FallbackRates {
		if strings.EqualFold(code, pcfg.BaseCurrency) {
			continue
		}
		symbols = append(symbols, strings.ToUpper(code))
	}

	providers := []RateProvider{
		NewAPIProvider(cfg.ExchangeRateAPIURL, pcfg.BaseCurrency, symbols),
		NewTableProvider(pricing),
	}
	return NewService(pcfg.BaseCurrency, providers, NewRateCache(clk, CacheTTL), log, m)
}

// Rates returns the current rates snapshot, fetching through the
// provider chain when the cache has expired.
func (s *Service) Rates(ctx context.Context) (Rates, error) {
	if rates, ok := s.cache.Get(); ok {
		return rates, nil
	}

	log := logger.WithContext(ctx, s.log)

	var lastErr error
	for _, provider := range s.providers {
		rates, err := provider.Fetch(ctx)
		if err != nil {
			lastErr = err
			log.Warn("rate provider failed",
				zap.String("provider", provider.Name()),
				zap.Error(err),
			)
			continue
		}

		s.cache.Set(rates)
		s.metrics.RecordRateFetch(ctx, provider.Name())
		return rates, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoRates
}

// Rate returns the conversion rate from the base currency to the given
// currency. Unknown currencies fall back to the USD rate.
func (s *Service) Rate(ctx context.Context, currency string) (float64, string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" || code == s.baseCurrency {
		return 1.0, s.baseCurrency, nil
	}

	rates, err := s.Rates(ctx)
	if err != nil {
		return 0, "", err
	}

	if rate, ok := rates[code]; ok && rate > 0 {
		return rate, code, nil
	}

	// No rate for this currency. Charge in USD instead of failing the
	// purchase outright.
	if rate, ok := rates["USD"]; ok && rate > 0 {
		return rate, "USD", nil
	}
	return 0, "", ErrNoRates
}

// Convert converts a base currency amount in minor units into the
// target currency. It returns the converted amount and the currency it
// is denominated in, which differs from the requested one when the
// USD fallback applies.
func (s *Service) Convert(ctx context.Context, amount int64, currency string) (int64, string, error) {
	rate, code, err := s.Rate(ctx, currency)
	if err != nil {
		return 0, "", err
	}
	return int64(math.Round(float64(amount) * rate)), code, nil
}

// BaseCurrency returns the currency amounts are converted from.
func (s *Service) BaseCurrency() string {
	return s.baseCurrency
}
