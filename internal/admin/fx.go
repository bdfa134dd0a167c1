package admin

import (
	"go.uber.org/fx"

	"github.com/gammapace/backend/internal/admin/repository"
	"github.com/gammapace/backend/internal/admin/service"
)

var Module = fx.Module("admin.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
