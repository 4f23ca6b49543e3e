package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every externally-resolved setting the pipeline needs.
// It is built once at process start and passed into component constructors;
// nothing reads the environment after Load returns.
type Config struct {
	// CoinGeckoAPIKey authenticates requests to the market data API. Required.
	CoinGeckoAPIKey string

	// BaseURL is the market data API root. Overridable for tests.
	BaseURL string

	// QuoteCurrency is the fiat currency prices are quoted in.
	QuoteCurrency string

	// APITimeout bounds a single market data request.
	APITimeout time.Duration

	// RetryCount is the number of retries after the first failed fetch attempt.
	RetryCount int

	// PageSize is the number of assets requested per pipeline run.
	PageSize int

	// DatabaseDSN is the storage connection string. Postgres URLs connect to
	// postgres; anything else is treated as a sqlite file path. A leading
	// "sqlite:///" prefix is accepted and stripped.
	DatabaseDSN string

	// AuditDir is where rejected-record snapshots are written.
	AuditDir string
}

// Load resolves the configuration from environment variables.
// A missing API key is a startup failure.
func Load() (*Config, error) {
	apiKey := os.Getenv("COINGECKO_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("COINGECKO_API_KEY is required")
	}

	timeout, err := getEnvInt("API_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	retries, err := getEnvInt("RETRY_COUNT", 5)
	if err != nil {
		return nil, err
	}
	pageSize, err := getEnvInt("BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}

	return &Config{
		CoinGeckoAPIKey: apiKey,
		BaseURL:         getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		QuoteCurrency:   getEnv("QUOTE_CURRENCY", "usd"),
		APITimeout:      time.Duration(timeout) * time.Second,
		RetryCount:      retries,
		PageSize:        pageSize,
		DatabaseDSN:     getEnv("DATABASE_URL", "data/marketpulse.db"),
		AuditDir:        getEnv("AUDIT_DIR", "data/issues"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}
