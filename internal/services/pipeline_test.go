package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tropicaldog17/marketpulse/internal/db"
	apperrors "github.com/tropicaldog17/marketpulse/internal/errors"
	"github.com/tropicaldog17/marketpulse/internal/models"
	"github.com/tropicaldog17/marketpulse/internal/repositories"
)

type stubFetcher struct {
	result FetchResult
}

func (s *stubFetcher) FetchMarkets(ctx context.Context, currency string) FetchResult {
	return s.result
}

type pipelineEnv struct {
	pipeline *Pipeline
	database *db.DB
	facts    repositories.FactRepository
}

func newPipelineEnv(t *testing.T, fetcher MarketFetcher) *pipelineEnv {
	t.Helper()

	database, err := db.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	staging, err := repositories.NewStagingRepository(database, zap.NewNop())
	require.NoError(t, err)
	facts, err := repositories.NewFactRepository(database, zap.NewNop())
	require.NoError(t, err)

	audit := NewAuditWriter(filepath.Join(t.TempDir(), "issues"), zap.NewNop())
	transformer := NewTransformer(staging, audit, zap.NewNop())
	validator := NewValidator(zap.NewNop())

	return &pipelineEnv{
		pipeline: NewPipeline(fetcher, staging, transformer, validator, facts, "usd", zap.NewNop()),
		database: database,
		facts:    facts,
	}
}

func (e *pipelineEnv) factCount(t *testing.T) int {
	t.Helper()
	var count int64
	require.NoError(t, e.database.Model(&models.MarketFact{}).Count(&count).Error)
	return int(count)
}

func (e *pipelineEnv) stagedCount(t *testing.T) int {
	t.Helper()
	var count int64
	require.NoError(t, e.database.Model(&models.StagedMarket{}).Count(&count).Error)
	return int(count)
}

func TestPipelineRunCommitsValidBatch(t *testing.T) {
	fetcher := &stubFetcher{result: FetchResult{Status: FetchOK, Assets: []models.RawAsset{
		rawAsset(`{"id":"bitcoin","symbol":"btc","current_price":50000,"total_volume":1000}`),
		rawAsset(`{"id":"ethereum","symbol":"eth","current_price":3000,"total_volume":500}`),
	}}}
	env := newPipelineEnv(t, fetcher)

	require.NoError(t, env.pipeline.Run(context.Background()))

	assert.Equal(t, 2, env.stagedCount(t))
	assert.Equal(t, 2, env.factCount(t))
}

func TestPipelineAbortsOnEmptyFetch(t *testing.T) {
	env := newPipelineEnv(t, &stubFetcher{result: FetchResult{Status: FetchEmpty}})

	// an anticipated abort, not a failed run
	require.NoError(t, env.pipeline.Run(context.Background()))

	assert.Equal(t, 0, env.stagedCount(t))
	assert.Equal(t, 0, env.factCount(t))
}

func TestPipelineSurfacesFetchFailure(t *testing.T) {
	fetchErr := fmt.Errorf("connection refused")
	env := newPipelineEnv(t, &stubFetcher{result: FetchResult{Status: FetchFailed, Err: fetchErr}})

	err := env.pipeline.Run(context.Background())
	require.Error(t, err)

	var fe *apperrors.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fetchErr, fe.Err)
	assert.Equal(t, 0, env.stagedCount(t))
}

func TestPipelineHaltsWhenValidationFails(t *testing.T) {
	// every asset filters out, the cleaned batch is empty, and an empty
	// batch never validates
	fetcher := &stubFetcher{result: FetchResult{Status: FetchOK, Assets: []models.RawAsset{
		rawAsset(`{"id":"zero-price","current_price":0,"total_volume":1000}`),
		rawAsset(`{"id":"zero-vol","current_price":50000,"total_volume":0}`),
	}}}
	env := newPipelineEnv(t, fetcher)

	require.NoError(t, env.pipeline.Run(context.Background()))

	// staged rows survive a halted run for inspection; nothing is ingested
	assert.Equal(t, 2, env.stagedCount(t))
	assert.Equal(t, 0, env.factCount(t))
}

func TestPipelineEndToEndOverHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":50000,"market_cap":900000,"total_volume":1000,"last_updated":"2026-08-31T06:00:00.000Z"},
			{"id":"stale-coin","symbol":"stl","name":"Stale","current_price":0.5,"market_cap":10,"total_volume":0,"last_updated":"2026-08-31T06:00:00.000Z"}
		]`)
	}))
	defer ts.Close()

	env := newPipelineEnv(t, testClient(ts.URL, 2))

	require.NoError(t, env.pipeline.Run(context.Background()))

	assert.Equal(t, 2, env.stagedCount(t))
	assert.Equal(t, 1, env.factCount(t))

	var fact models.MarketFact
	require.NoError(t, env.database.Where("coin_id = ?", "bitcoin").First(&fact).Error)
	assert.Equal(t, "btc", fact.Symbol)
	assert.Equal(t, "Bitcoin", fact.Name)
	assert.Equal(t, "2026-08-31T06:00:00.000Z", fact.LastUpdated)
}
