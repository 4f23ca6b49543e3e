package repositories

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tropicaldog17/marketpulse/internal/models"
)

func amount(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

func cleanedRecord(batchID, coinID string) models.CleanedRecord {
	return models.CleanedRecord{
		BatchID:     batchID,
		CoinID:      coinID,
		Symbol:      coinID[:3],
		Name:        coinID,
		Price:       amount(50000),
		MarketCap:   amount(1000000),
		TotalVolume: amount(1000),
		LastUpdated: "2026-08-31T06:00:00.000Z",
	}
}

func TestCommitIsIdempotent(t *testing.T) {
	database := newTestDB(t)
	repo, err := NewFactRepository(database, zap.NewNop())
	require.NoError(t, err)

	records := []models.CleanedRecord{
		cleanedRecord("20260831_060000", "bitcoin"),
		cleanedRecord("20260831_060000", "ethereum"),
	}

	require.NoError(t, repo.Commit(context.Background(), records))

	count, err := repo.CountByBatch(context.Background(), "20260831_060000")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// re-running the same commit must not add or overwrite rows
	require.NoError(t, repo.Commit(context.Background(), records))

	count, err = repo.CountByBatch(context.Background(), "20260831_060000")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCommitEmptyIsNoOp(t *testing.T) {
	database := newTestDB(t)
	repo, err := NewFactRepository(database, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, repo.Commit(context.Background(), nil))

	count, err := repo.CountByBatch(context.Background(), "20260831_060000")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCommitKeepsBatchesDisjoint(t *testing.T) {
	database := newTestDB(t)
	repo, err := NewFactRepository(database, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, repo.Commit(context.Background(), []models.CleanedRecord{
		cleanedRecord("20260831_060000", "bitcoin"),
	}))
	require.NoError(t, repo.Commit(context.Background(), []models.CleanedRecord{
		cleanedRecord("20260831_180000", "bitcoin"),
	}))

	first, err := repo.CountByBatch(context.Background(), "20260831_060000")
	require.NoError(t, err)
	second, err := repo.CountByBatch(context.Background(), "20260831_180000")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestCommitPreservesExistingRow(t *testing.T) {
	database := newTestDB(t)
	repo, err := NewFactRepository(database, zap.NewNop())
	require.NoError(t, err)

	original := cleanedRecord("20260831_060000", "bitcoin")
	require.NoError(t, repo.Commit(context.Background(), []models.CleanedRecord{original}))

	// same key, different price: the existing row must be left untouched
	changed := original
	changed.Price = amount(60000)
	require.NoError(t, repo.Commit(context.Background(), []models.CleanedRecord{changed}))

	var fact models.MarketFact
	err = database.Where("batch_id = ? AND coin_id = ?", "20260831_060000", "bitcoin").
		First(&fact).Error
	require.NoError(t, err)
	assert.True(t, fact.Price.Equal(decimal.NewFromInt(50000)),
		"expected original price, got %s", fact.Price)
}
