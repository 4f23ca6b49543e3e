package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/marketpulse/internal/db"
	"github.com/tropicaldog17/marketpulse/internal/models"
)

type factRepository struct {
	db     *db.DB
	logger *zap.Logger
}

// NewFactRepository creates the fact repository and ensures the historical
// table exists. Migration is idempotent.
func NewFactRepository(database *db.DB, logger *zap.Logger) (FactRepository, error) {
	if err := database.AutoMigrate(&models.MarketFact{}); err != nil {
		return nil, fmt.Errorf("failed to migrate fact table: %w", err)
	}
	return &factRepository{db: database, logger: logger}, nil
}

func (r *factRepository) Commit(ctx context.Context, records []models.CleanedRecord) error {
	if len(records) == 0 {
		r.logger.Warn("ingestion skipped: no valid records to load")
		return nil
	}

	facts := make([]models.MarketFact, 0, len(records))
	for _, rec := range records {
		facts = append(facts, rec.Fact())
	}

	// Insert-if-absent on (batch_id, coin_id): re-committing a batch leaves
	// existing rows untouched.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&facts).Error
	})
	if err != nil {
		return fmt.Errorf("failed to load records to fact table: %w", err)
	}

	r.logger.Info("records archived in fact table", zap.Int("records", len(facts)))
	return nil
}

func (r *factRepository) CountByBatch(ctx context.Context, batchID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MarketFact{}).
		Where("batch_id = ?", batchID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count fact rows for batch %s: %w", batchID, err)
	}
	return int(count), nil
}
