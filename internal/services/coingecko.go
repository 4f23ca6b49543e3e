package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tropicaldog17/marketpulse/internal/config"
	"github.com/tropicaldog17/marketpulse/internal/models"
)

// FetchStatus tags the outcome of a market fetch so the orchestrator can
// tell "fetch failed" from "API legitimately returned zero assets".
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchEmpty
	FetchFailed
)

// FetchResult is the tagged outcome of one FetchMarkets call.
type FetchResult struct {
	Status FetchStatus
	Assets []models.RawAsset
	Err    error
}

// CoinGeckoClient fetches market snapshots from the CoinGecko markets
// endpoint with bounded exponential-backoff retry on transport failures.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	pageSize   int
	retryCount int
	httpClient *http.Client
	logger     *zap.Logger

	backoffInitial time.Duration
	backoffMax     time.Duration
}

// NewCoinGeckoClient creates a market data client from resolved configuration.
func NewCoinGeckoClient(cfg *config.Config, logger *zap.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.CoinGeckoAPIKey,
		pageSize:       cfg.PageSize,
		retryCount:     cfg.RetryCount,
		httpClient:     &http.Client{Timeout: cfg.APITimeout},
		logger:         logger,
		backoffInitial: 4 * time.Second,
		backoffMax:     10 * time.Second,
	}
}

type httpStatusError struct {
	code int
	body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("coingecko status %d: %s", e.code, e.body)
}

// FetchMarkets fetches the current market snapshot for the given quote
// currency. Connection errors, 429 and 5xx responses are retried with
// exponential backoff up to the configured retry count; other client errors
// and malformed response bodies are not retried.
func (c *CoinGeckoClient) FetchMarkets(ctx context.Context, currency string) FetchResult {
	c.logger.Info("fetching market data from CoinGecko", zap.String("currency", currency))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoffInitial
	policy.MaxInterval = c.backoffMax

	assets, err := backoff.RetryWithData(func() ([]models.RawAsset, error) {
		return c.fetchPage(ctx, currency, 1)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retryCount)), ctx))
	if err != nil {
		c.logger.Error("critical error in data extraction", zap.Error(err))
		return FetchResult{Status: FetchFailed, Err: err}
	}
	if len(assets) == 0 {
		c.logger.Warn("market data fetch returned zero assets")
		return FetchResult{Status: FetchEmpty}
	}

	c.logger.Info("successfully fetched market data from API", zap.Int("assets", len(assets)))
	return FetchResult{Status: FetchOK, Assets: assets}
}

func (c *CoinGeckoClient) fetchPage(ctx context.Context, currency string, page int) ([]models.RawAsset, error) {
	params := url.Values{}
	params.Set("vs_currency", currency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(c.pageSize))
	params.Set("page", strconv.Itoa(page))

	endpoint := c.baseURL + "/coins/markets?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-cg-demo-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// transport-level failure, retryable
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		statusErr := &httpStatusError{code: resp.StatusCode, body: string(body)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	var payloads []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		// malformed body is not a transport failure, do not retry
		return nil, backoff.Permanent(fmt.Errorf("decode market response: %w", err))
	}

	assets := make([]models.RawAsset, 0, len(payloads))
	for _, payload := range payloads {
		var head struct {
			ID string `json:"id"`
		}
		// a missing or non-string id is tolerated; staging stores an empty coin id
		_ = json.Unmarshal(payload, &head)
		assets = append(assets, models.RawAsset{CoinID: head.ID, Payload: payload})
	}
	return assets, nil
}
