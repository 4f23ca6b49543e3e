package repositories

import (
	"context"

	"github.com/tropicaldog17/marketpulse/internal/models"
)

// StagingRepository is the append-only landing area for raw fetched payloads.
type StagingRepository interface {
	// Stage writes one row per asset under a fresh batch id, all in a single
	// transaction. It never deduplicates: staging the same assets twice
	// produces two disjoint batches.
	Stage(ctx context.Context, assets []models.RawAsset) (string, error)

	// ListByBatch returns staged rows for one batch in insertion order.
	ListByBatch(ctx context.Context, batchID string) ([]models.StagedMarket, error)

	// ListAll returns the entire staging store in insertion order.
	ListAll(ctx context.Context) ([]models.StagedMarket, error)
}

// FactRepository is the permanent historical store of validated records.
type FactRepository interface {
	// Commit bulk-inserts records in one transaction with insert-if-absent
	// semantics on (batch_id, coin_id). Empty input is a logged no-op.
	Commit(ctx context.Context, records []models.CleanedRecord) error

	// CountByBatch returns the number of fact rows ingested for a batch.
	CountByBatch(ctx context.Context, batchID string) (int, error)
}
