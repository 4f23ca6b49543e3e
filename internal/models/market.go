package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RawAsset is one asset object as returned by the market data API.
// The payload is kept verbatim so staging stores exactly what was fetched;
// CoinID is extracted opportunistically and may be empty.
type RawAsset struct {
	CoinID  string
	Payload json.RawMessage
}

// StagedMarket is one immutable staging row. The staging table is a pure
// append log: no uniqueness constraints, rows are never updated.
type StagedMarket struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	CoinID      string    `json:"coin_id" gorm:"column:coin_id;type:varchar(255);index"`
	RawData     string    `json:"raw_data" gorm:"column:raw_data;type:text"`
	ExtractedAt time.Time `json:"extracted_at" gorm:"column:extracted_at"`
	BatchID     string    `json:"batch_id" gorm:"column:batch_id;type:varchar(64);index"`
}

func (StagedMarket) TableName() string {
	return "stg_crypto_markets"
}

// CleanedRecord is the transformed shape shared by the transformer, the
// validator and the core writer. Price, market cap and volume carry an
// explicit valid flag: a field that did not parse as a number stays invalid
// and is treated like a non-positive value everywhere downstream.
type CleanedRecord struct {
	BatchID     string              `json:"batch_id"`
	CoinID      string              `json:"id"`
	Symbol      string              `json:"symbol"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	MarketCap   decimal.NullDecimal `json:"market_cap"`
	TotalVolume decimal.NullDecimal `json:"total_volume"`
	LastUpdated string              `json:"last_updated"`
}

// Active reports whether the record survives filtering: price and volume
// must both be well-formed numbers strictly greater than zero.
func (r CleanedRecord) Active() bool {
	return r.Price.Valid && r.Price.Decimal.IsPositive() &&
		r.TotalVolume.Valid && r.TotalVolume.Decimal.IsPositive()
}

// RejectedRecord is a CleanedRecord that failed filtering, written to the
// batch-partitioned audit snapshot. Never read back by the pipeline.
type RejectedRecord struct {
	CleanedRecord
	Reason string `json:"reason"`
}

// MarketFact is one row of the historical fact table. The table is
// append-only; the composite key makes re-ingesting a batch a no-op.
type MarketFact struct {
	BatchID     string          `json:"batch_id" gorm:"column:batch_id;type:varchar(64);primaryKey"`
	CoinID      string          `json:"coin_id" gorm:"column:coin_id;type:varchar(255);primaryKey"`
	Symbol      string          `json:"symbol" gorm:"column:symbol;type:varchar(50)"`
	Name        string          `json:"name" gorm:"column:name;type:varchar(255)"`
	Price       decimal.Decimal `json:"price" gorm:"column:price;type:decimal(30,10)"`
	MarketCap   decimal.Decimal `json:"market_cap" gorm:"column:market_cap;type:decimal(38,10)"`
	TotalVolume decimal.Decimal `json:"total_volume" gorm:"column:total_volume;type:decimal(38,10)"`
	LastUpdated string          `json:"last_updated_at" gorm:"column:last_updated_at;type:varchar(64)"`
}

func (MarketFact) TableName() string {
	return "fct_crypto_prices"
}

// Fact maps a cleaned record onto its fact table row. Invalid numeric
// fields never reach this point for price/volume (the validator gates
// them), but market cap may be invalid and lands as zero.
func (r CleanedRecord) Fact() MarketFact {
	return MarketFact{
		BatchID:     r.BatchID,
		CoinID:      r.CoinID,
		Symbol:      r.Symbol,
		Name:        r.Name,
		Price:       r.Price.Decimal,
		MarketCap:   r.MarketCap.Decimal,
		TotalVolume: r.TotalVolume.Decimal,
		LastUpdated: r.LastUpdated,
	}
}
