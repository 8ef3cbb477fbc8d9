package db

import (
	"context"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/rolegate/internal/config"
	"github.com/smallbiznis/rolegate/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

// Open connects GORM using the configured dialect and pool settings.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialect, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialect, &gorm.Config{
		Logger:         logger.NewGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := gdb.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.DBName))); err != nil {
		return nil, err
	}

	dbMetrics := gormprom.New(gormprom.Config{
		DBName:          cfg.DBName,
		RefreshInterval: 15,
	})
	if err := dbMetrics.Initialize(gdb); err != nil {
		return nil, err
	}
	for _, collector := range dbMetrics.Collectors {
		_ = prom.Register(collector)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Minute)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return sqlDB.PingContext(ctx)
			},
			OnStop: func(ctx context.Context) error {
				_ = ctx
				if err := sqlDB.Close(); err != nil {
					log.Warn("database close", zap.Error(err))
				}
				return nil
			},
		})
	}

	log.Info("database connected",
		zap.String("db_type", cfg.DBType),
		zap.String("db_name", cfg.DBName),
	)
	return gdb, nil
}
