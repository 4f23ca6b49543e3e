package services

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tropicaldog17/marketpulse/internal/models"
	"github.com/tropicaldog17/marketpulse/internal/repositories"
)

// Rejection reasons written to the audit snapshot.
const (
	ReasonInactiveAsset    = "invalid asset: zero price or volume detected"
	ReasonMalformedPayload = "malformed payload"
)

// Transformer reads staged rows, applies the cleaning and filtering rules
// and routes rejected records to the audit sink.
type Transformer struct {
	staging repositories.StagingRepository
	audit   *AuditWriter
	logger  *zap.Logger
}

func NewTransformer(staging repositories.StagingRepository, audit *AuditWriter, logger *zap.Logger) *Transformer {
	return &Transformer{staging: staging, audit: audit, logger: logger}
}

// Extract reads staged rows for the batch (or the whole staging store when
// batchID is empty, the full-reprocess mode) and returns the records that
// survive filtering, in staging insertion order. An empty staging result is
// not an error; storage failures are.
func (t *Transformer) Extract(ctx context.Context, batchID string) ([]models.CleanedRecord, error) {
	t.logger.Info("extracting staged data for processing", zap.String("batch_id", batchID))

	var (
		rows []models.StagedMarket
		err  error
	)
	if batchID != "" {
		rows, err = t.staging.ListByBatch(ctx, batchID)
	} else {
		rows, err = t.staging.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		t.logger.Warn("no records found in staging", zap.String("batch_id", batchID))
		return nil, nil
	}

	return t.transform(rows, batchID), nil
}

type marketPayload struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	CurrentPrice json.RawMessage `json:"current_price"`
	MarketCap    json.RawMessage `json:"market_cap"`
	TotalVolume  json.RawMessage `json:"total_volume"`
	LastUpdated  string          `json:"last_updated"`
}

func (t *Transformer) transform(rows []models.StagedMarket, batchID string) []models.CleanedRecord {
	var (
		cleaned  []models.CleanedRecord
		rejected []models.RejectedRecord
	)

	for _, row := range rows {
		recBatch := batchID
		if recBatch == "" {
			recBatch = row.BatchID
		}

		var payload marketPayload
		if err := json.Unmarshal([]byte(row.RawData), &payload); err != nil {
			t.logger.Warn("data corruption detected: unparseable staged payload",
				zap.String("coin_id", row.CoinID),
				zap.String("batch_id", row.BatchID),
				zap.Error(err))
			rejected = append(rejected, models.RejectedRecord{
				CleanedRecord: models.CleanedRecord{BatchID: recBatch, CoinID: row.CoinID},
				Reason:        ReasonMalformedPayload,
			})
			continue
		}

		rec := models.CleanedRecord{
			BatchID:     recBatch,
			CoinID:      payload.ID,
			Symbol:      payload.Symbol,
			Name:        payload.Name,
			Price:       parseAmount(payload.CurrentPrice),
			MarketCap:   parseAmount(payload.MarketCap),
			TotalVolume: parseAmount(payload.TotalVolume),
			LastUpdated: payload.LastUpdated,
		}

		if rec.Active() {
			cleaned = append(cleaned, rec)
		} else {
			rejected = append(rejected, models.RejectedRecord{
				CleanedRecord: rec,
				Reason:        ReasonInactiveAsset,
			})
		}
	}

	if len(rejected) > 0 {
		// Audit output is best effort: a failed snapshot write never fails
		// the transform itself.
		if err := t.audit.WriteSnapshot(batchID, rejected); err != nil {
			t.logger.Error("auditing failure: could not save issue report",
				zap.String("batch_id", batchID),
				zap.Error(err))
		}
	}

	t.logger.Info("transformation complete",
		zap.Int("valid", len(cleaned)),
		zap.Int("rejected", len(rejected)))
	return cleaned
}

// parseAmount decodes a numeric JSON field. Missing and null fields default
// to zero; anything that does not parse as a number is invalid and filters
// like a non-positive value.
func parseAmount(raw json.RawMessage) decimal.NullDecimal {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(trimmed); err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
