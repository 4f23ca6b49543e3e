package services

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tropicaldog17/marketpulse/internal/models"
)

// Validator is the final gate before ingestion into the fact table. It
// re-checks every record independently of the transformer's filter, so a
// filtering defect cannot silently admit bad records.
type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate returns true only when every record in the batch has a
// well-formed positive price and total volume. An empty batch never passes:
// a silent no-op success would mask an upstream problem.
func (v *Validator) Validate(records []models.CleanedRecord) bool {
	if len(records) == 0 {
		v.logger.Warn("data quality check: no data provided for validation")
		return false
	}

	v.logger.Info("executing data quality checks", zap.Int("records", len(records)))

	violations := 0
	for _, rec := range records {
		violations += v.checkAmount(rec.CoinID, "price", rec.Price)
		violations += v.checkAmount(rec.CoinID, "total_volume", rec.TotalVolume)
	}

	if violations > 0 {
		v.logger.Error("data quality status: FAILED", zap.Int("violations", violations))
		return false
	}

	v.logger.Info("data quality status: PASSED")
	return true
}

func (v *Validator) checkAmount(coinID, field string, amount decimal.NullDecimal) int {
	if !amount.Valid {
		v.logger.Error("data quality violation: non-numeric value",
			zap.String("coin_id", coinID),
			zap.String("field", field))
		return 1
	}
	if !amount.Decimal.IsPositive() {
		v.logger.Warn("data quality violation: non-positive value",
			zap.String("coin_id", coinID),
			zap.String("field", field),
			zap.String("value", amount.Decimal.String()))
		return 1
	}
	return 0
}
