package geo

import (
	"context"

	"go.uber.org/zap"

	"github.com/gammapace/backend/internal/observability/logger"
)

// Service resolves client locations through an ordered provider chain.
type Service struct {
	providers []Provider
	log       *zap.Logger
}

func NewService(providers []Provider, log *zap.Logger) *Service {
	return &Service{providers: providers, log: log}
}

// NewDefaultService assembles the standard chain: ipapi.co, then
// ip-api.com, then the timezone approximation.
func NewDefaultService(log *zap.Logger) *Service {
	return NewService([]Provider{
		NewIPAPICoProvider(""),
		NewIPAPIComProvider(""),
		NewTimezoneProvider(),
	}, log)
}

// Lookup returns the first usable location the chain produces. When
// every provider fails it returns a zero location and ok=false rather
// than an error, because location is advisory.
func (s *Service) Lookup(ctx context.Context, q Query) (Location, bool) {
	log := logger.WithContext(ctx, s.log)

	for _, provider := range s.providers {
		loc, err := provider.Lookup(ctx, q)
		if err != nil {
			log.Debug("location provider failed",
				zap.String("provider", provider.Name()),
				zap.Error(err),
			)
			continue
		}
		if !loc.Usable() {
			continue
		}
		return loc, true
	}
	return Location{}, false
}
