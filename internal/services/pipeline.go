package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/marketpulse/internal/errors"
	"github.com/tropicaldog17/marketpulse/internal/repositories"
)

// Pipeline sequences one full Fetch -> Stage -> Transform -> Validate ->
// Commit pass. Stages run strictly in order within a single goroutine; any
// failure signal short-circuits the rest of the run. Staged data persisted
// before a later stage fails is kept deliberately, so a halted run leaves
// raw data behind for inspection and reprocessing.
type Pipeline struct {
	fetcher     MarketFetcher
	staging     repositories.StagingRepository
	transformer *Transformer
	validator   *Validator
	facts       repositories.FactRepository
	currency    string
	logger      *zap.Logger
}

func NewPipeline(
	fetcher MarketFetcher,
	staging repositories.StagingRepository,
	transformer *Transformer,
	validator *Validator,
	facts repositories.FactRepository,
	currency string,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		staging:     staging,
		transformer: transformer,
		validator:   validator,
		facts:       facts,
		currency:    currency,
		logger:      logger,
	}
}

// Run executes one pipeline pass. It returns nil for normal outcomes,
// including the two anticipated aborts (empty fetch, failed validation);
// transport exhaustion and storage failures are returned so the invoking
// scheduler sees a failed run.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := p.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("initiating cryptocurrency ELT pipeline", zap.String("currency", p.currency))

	result := p.fetcher.FetchMarkets(ctx, p.currency)
	switch result.Status {
	case FetchFailed:
		logger.Error("pipeline aborted: market fetch failed", zap.Error(result.Err))
		return &apperrors.FetchError{Err: result.Err}
	case FetchEmpty:
		logger.Error("pipeline aborted: no data retrieved from API")
		return nil
	}

	batchID, err := p.staging.Stage(ctx, result.Assets)
	if err != nil {
		logger.Error("pipeline aborted: staging failed", zap.Error(err))
		return &apperrors.StorageError{Op: "stage batch", Err: err}
	}

	cleaned, err := p.transformer.Extract(ctx, batchID)
	if err != nil {
		logger.Error("pipeline aborted: transformation failed",
			zap.String("batch_id", batchID), zap.Error(err))
		return &apperrors.StorageError{Op: "extract staged batch", Err: err}
	}

	if !p.validator.Validate(cleaned) {
		logger.Error("pipeline halted: data quality validation failed, ingestion cancelled",
			zap.String("batch_id", batchID))
		return nil
	}

	if err := p.facts.Commit(ctx, cleaned); err != nil {
		logger.Error("pipeline aborted: fact table load failed",
			zap.String("batch_id", batchID), zap.Error(err))
		return &apperrors.StorageError{Op: "commit batch", Err: err}
	}

	logger.Info("pipeline execution completed successfully",
		zap.String("batch_id", batchID),
		zap.Int("records", len(cleaned)))
	return nil
}
