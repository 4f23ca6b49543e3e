package repositories

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/marketpulse/internal/db"
	"github.com/tropicaldog17/marketpulse/internal/models"
)

// Batch ids are wall-clock derived and human-sortable; uniqueness holds at
// run granularity because runs are never concurrent.
const batchIDLayout = "20060102_150405"

type stagingRepository struct {
	db     *db.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewStagingRepository creates the staging repository and ensures the
// staging table exists.
func NewStagingRepository(database *db.DB, logger *zap.Logger) (StagingRepository, error) {
	if err := database.AutoMigrate(&models.StagedMarket{}); err != nil {
		return nil, fmt.Errorf("failed to migrate staging table: %w", err)
	}
	return &stagingRepository{db: database, logger: logger, now: time.Now}, nil
}

func (r *stagingRepository) Stage(ctx context.Context, assets []models.RawAsset) (string, error) {
	now := r.now()
	batchID := now.Format(batchIDLayout)
	extractedAt := now.UTC()

	rows := make([]models.StagedMarket, 0, len(assets))
	for _, asset := range assets {
		rows = append(rows, models.StagedMarket{
			CoinID:      asset.CoinID,
			RawData:     string(asset.Payload),
			ExtractedAt: extractedAt,
			BatchID:     batchID,
		})
	}

	if len(rows) > 0 {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&rows).Error
		})
		if err != nil {
			return "", fmt.Errorf("failed to load batch to staging: %w", err)
		}
	}

	r.logger.Info("loaded records to staging",
		zap.Int("records", len(rows)),
		zap.String("batch_id", batchID))
	return batchID, nil
}

func (r *stagingRepository) ListByBatch(ctx context.Context, batchID string) ([]models.StagedMarket, error) {
	var rows []models.StagedMarket
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list staged rows for batch %s: %w", batchID, err)
	}
	return rows, nil
}

func (r *stagingRepository) ListAll(ctx context.Context) ([]models.StagedMarket, error) {
	var rows []models.StagedMarket
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list staged rows: %w", err)
	}
	return rows, nil
}
