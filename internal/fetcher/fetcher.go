package fetcher

import (
	"context"
	"time"

	"bist-returns/internal/model"
)

// HistoryFetcher retrieves the daily close series for one symbol over a
// date range.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol model.Symbol, from, to time.Time) (model.PriceSeries, error)
}

// QuoteFetcher retrieves precomputed trailing returns for many symbols in a
// single request.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context) ([]model.ProviderRecord, error)
}
