package user

import (
	"go.uber.org/fx"

	"github.com/gammapace/backend/internal/user/repository"
	"github.com/gammapace/backend/internal/user/service"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
