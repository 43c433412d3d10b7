package main

import (
	"log"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/apiserver/notifier"
	"github.com/amoylab/rowgate/internal/common/config"
	"github.com/amoylab/rowgate/pkg/logger"
	"github.com/amoylab/rowgate/pkg/metrics"

	"go.uber.org/zap"
)

func loadConfig(path string) *config.RowGateConfig {
	cfg, cfgPath, err := config.LoadConfig[config.RowGateConfig](path)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}
	return cfg
}

func initLogger(cfg *config.RowGateConfig) *zap.Logger {
	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return lg
}

func initDatabase(lg *zap.Logger, cfg *config.DatabaseConfig) database.Database {
	db, err := database.NewDatabase(cfg)
	if err != nil {
		lg.Fatal("Failed to initialize database", zap.String("type", cfg.Type), zap.Error(err))
	}
	return db
}

func initNotifier(lg *zap.Logger, cfg *config.NotifierConfig) notifier.Notifier {
	n, err := notifier.NewNotifier(lg, cfg)
	if err != nil {
		lg.Fatal("Failed to initialize notifier", zap.String("type", cfg.Type), zap.Error(err))
	}
	return n
}

// initMetrics returns nil when metrics are disabled
func initMetrics(cfg *config.RowGateConfig) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(cfg.Metrics)
}
