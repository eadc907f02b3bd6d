package migration

import (
	"context"
	"strings"

	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.MigrateOnStart {
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		switch strings.ToLower(cfg.DBType) {
		case "postgres":
			err = RunMigrations(sqlDB)
		case "sqlite":
			err = ApplySQLite(sqlDB)
		default:
			log.Warn("no schema migrations for database type; skipping", zap.String("db_type", cfg.DBType))
		}
		if err != nil {
			return err
		}

		return seed.EnsureReferenceData(context.Background(), conn)
	}),
)
