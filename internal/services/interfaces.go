package services

import "context"

// MarketFetcher pulls one page of market snapshots from the source API.
// Implementations must never panic on transport failure; exhausted retries
// surface as a Failed result.
type MarketFetcher interface {
	FetchMarkets(ctx context.Context, currency string) FetchResult
}
