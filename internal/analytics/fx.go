package analytics

import (
	"go.uber.org/fx"

	"github.com/gammapace/backend/internal/analytics/repository"
	"github.com/gammapace/backend/internal/analytics/service"
)

var Module = fx.Module("analytics.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
