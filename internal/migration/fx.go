package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/config"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// SQL migrations target postgres. Other dialects, used for
			// local development and tests, rely on gorm AutoMigrate in
			// their respective test harnesses.
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
