package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bist-returns/internal/model"
)

// HistoryOptions tune batched history acquisition.
type HistoryOptions struct {
	BatchSize  int
	BatchPause time.Duration
	Workers    int
}

// HistoryClient fans a universe of symbols out to the history provider in
// rate-limited batches. Failures stay per symbol; one poisoned ticker never
// sinks its siblings.
type HistoryClient struct {
	fetcher HistoryFetcher
	retrier Retrier
	limiter *rate.Limiter
	opts    HistoryOptions
	logger  zerolog.Logger
}

// HistoryResult maps each requested symbol to either a series or an error.
type HistoryResult struct {
	Series map[model.Symbol]model.PriceSeries
	Errors map[model.Symbol]error
}

type symbolResult struct {
	symbol model.Symbol
	series model.PriceSeries
	err    error
}

// NewHistoryClient constructs a batched history client.
func NewHistoryClient(fetcher HistoryFetcher, retrier Retrier, opts HistoryOptions, logger zerolog.Logger) *HistoryClient {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = 700 * time.Millisecond
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}

	return &HistoryClient{
		fetcher: fetcher,
		retrier: retrier,
		limiter: rate.NewLimiter(rate.Every(opts.BatchPause), 1),
		opts:    opts,
		logger:  logger.With().Str("component", "history_client").Logger(),
	}
}

// FetchAll retrieves histories for every symbol. A context deadline turns
// still-pending symbols into per-symbol failures rather than a run failure.
func (h *HistoryClient) FetchAll(ctx context.Context, symbols []model.Symbol, from, to time.Time) HistoryResult {
	result := HistoryResult{
		Series: make(map[model.Symbol]model.PriceSeries, len(symbols)),
		Errors: make(map[model.Symbol]error),
	}

	batches := chunkSymbols(symbols, h.opts.BatchSize)
	for i, batch := range batches {
		if err := h.limiter.Wait(ctx); err != nil {
			// The limiter refuses with its own error when the pause would
			// cross the deadline, before ctx.Err() is set.
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			pending := 0
			for _, remaining := range batches[i:] {
				for _, sym := range remaining {
					result.Errors[sym] = err
					pending++
				}
			}
			h.logger.Warn().Err(err).Int("pending", pending).Msg("run deadline reached; pending symbols recorded as failures")
			break
		}

		h.logger.Debug().Int("batch", i+1).Int("batches", len(batches)).Int("symbols", len(batch)).Msg("fetching history batch")
		h.fetchBatch(ctx, batch, from, to, &result)
	}

	h.logger.Info().Int("requested", len(symbols)).Int("fetched", len(result.Series)).Int("failed", len(result.Errors)).Msg("history acquisition finished")
	return result
}

func (h *HistoryClient) fetchBatch(ctx context.Context, batch []model.Symbol, from, to time.Time, result *HistoryResult) {
	symCh := make(chan model.Symbol, len(batch))
	resCh := make(chan symbolResult, len(batch))

	var wg sync.WaitGroup
	workers := h.opts.Workers
	if workers > len(batch) {
		workers = len(batch)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symCh {
				var series model.PriceSeries
				err := h.retrier.Do(ctx, func(ctx context.Context) error {
					var fetchErr error
					series, fetchErr = h.fetcher.FetchHistory(ctx, sym, from, to)
					return fetchErr
				})
				resCh <- symbolResult{symbol: sym, series: series, err: err}
			}
		}()
	}

	for _, sym := range batch {
		symCh <- sym
	}
	close(symCh)

	go func() {
		wg.Wait()
		close(resCh)
	}()

	for res := range resCh {
		if res.err != nil {
			result.Errors[res.symbol] = res.err
			h.logger.Warn().Err(res.err).Str("symbol", string(res.symbol)).Msg("history fetch failed")
			continue
		}
		result.Series[res.symbol] = res.series
	}
}

func chunkSymbols(symbols []model.Symbol, size int) [][]model.Symbol {
	if len(symbols) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]model.Symbol{symbols}
	}

	batches := make([][]model.Symbol, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}

