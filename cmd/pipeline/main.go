package main

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tropicaldog17/marketpulse/internal/config"
	"github.com/tropicaldog17/marketpulse/internal/db"
	"github.com/tropicaldog17/marketpulse/internal/logger"
	"github.com/tropicaldog17/marketpulse/internal/repositories"
	"github.com/tropicaldog17/marketpulse/internal/services"
)

// Runs one full pipeline pass and exits. Scheduling (e.g. twice daily) is
// left to an external cron.
func main() {
	// Best effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Health(); err != nil {
		log.Fatal("database health check failed", zap.Error(err))
	}
	log.Info("database connection established")

	staging, err := repositories.NewStagingRepository(database, log)
	if err != nil {
		log.Fatal("failed to initialize staging repository", zap.Error(err))
	}
	facts, err := repositories.NewFactRepository(database, log)
	if err != nil {
		log.Fatal("failed to initialize fact repository", zap.Error(err))
	}

	fetcher := services.NewCoinGeckoClient(cfg, log)
	audit := services.NewAuditWriter(cfg.AuditDir, log)
	transformer := services.NewTransformer(staging, audit, log)
	validator := services.NewValidator(log)

	pipeline := services.NewPipeline(fetcher, staging, transformer, validator, facts, cfg.QuoteCurrency, log)
	if err := pipeline.Run(context.Background()); err != nil {
		log.Fatal("pipeline run failed", zap.Error(err))
	}
}
