package session

import (
	"go.uber.org/fx"

	"github.com/gammapace/backend/internal/session/repository"
	"github.com/gammapace/backend/internal/session/service"
)

var Module = fx.Module("session.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
