package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bist-returns/internal/model"
)

type stubHistoryFetcher struct {
	mu     sync.Mutex
	delay  time.Duration
	calls  map[model.Symbol]int
	series map[model.Symbol]model.PriceSeries
	errs   map[model.Symbol]error
}

func newStubHistoryFetcher() *stubHistoryFetcher {
	return &stubHistoryFetcher{
		calls:  make(map[model.Symbol]int),
		series: make(map[model.Symbol]model.PriceSeries),
		errs:   make(map[model.Symbol]error),
	}
}

func (s *stubHistoryFetcher) FetchHistory(ctx context.Context, symbol model.Symbol, from, to time.Time) (model.PriceSeries, error) {
	s.mu.Lock()
	s.calls[symbol]++
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err, ok := s.errs[symbol]; ok {
		return model.PriceSeries{}, err
	}
	return s.series[symbol], nil
}

func (s *stubHistoryFetcher) callCount(symbol model.Symbol) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

func onePointSeries(date time.Time, close float64) model.PriceSeries {
	return model.NewPriceSeries([]model.PricePoint{{Date: date, Close: decimal.NewFromFloat(close)}})
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	stub := newStubHistoryFetcher()
	stub.series["AKBNK"] = onePointSeries(day, 45.5)
	stub.series["GARAN"] = onePointSeries(day, 92.1)
	stub.errs["THYAO"] = permanentErr("fetch chart", errors.New("symbol not found"))

	client := NewHistoryClient(stub, NewRetrier(3, time.Millisecond, 5*time.Millisecond), HistoryOptions{
		BatchSize:  10,
		BatchPause: time.Millisecond,
		Workers:    4,
	}, noopLogger())

	result := client.FetchAll(context.Background(), []model.Symbol{"AKBNK", "THYAO", "GARAN"}, day.AddDate(0, 0, -10), day)

	if len(result.Series) != 2 {
		t.Fatalf("expected 2 fetched series, got %d", len(result.Series))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 failed symbol, got %d", len(result.Errors))
	}
	if _, ok := result.Errors["THYAO"]; !ok {
		t.Fatalf("expected THYAO to carry the failure, got %v", result.Errors)
	}
	if stub.callCount("THYAO") != 1 {
		t.Fatalf("permanent failure must not be retried, got %d calls", stub.callCount("THYAO"))
	}
}

func TestFetchAllRetriesTransientPerSymbol(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	stub := newStubHistoryFetcher()
	stub.errs["AKBNK"] = transientErr("fetch chart", errors.New("status 503"))

	client := NewHistoryClient(stub, NewRetrier(3, time.Millisecond, 5*time.Millisecond), HistoryOptions{
		BatchSize:  10,
		BatchPause: time.Millisecond,
		Workers:    2,
	}, noopLogger())

	result := client.FetchAll(context.Background(), []model.Symbol{"AKBNK"}, day.AddDate(0, 0, -10), day)

	if len(result.Errors) != 1 {
		t.Fatalf("expected the symbol to fail after retries, got %v", result.Errors)
	}
	if got := stub.callCount("AKBNK"); got != 3 {
		t.Fatalf("expected 3 attempts for transient failure, got %d", got)
	}
}

func TestFetchAllDeadlineMarksPendingSymbols(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	stub := newStubHistoryFetcher()
	stub.delay = 60 * time.Millisecond
	for _, sym := range []model.Symbol{"AKBNK", "GARAN", "THYAO", "TUPRS"} {
		stub.series[sym] = onePointSeries(day, 10)
	}

	// The deadline passes while the first batch is in flight, so the second
	// batch never starts.
	client := NewHistoryClient(stub, NewRetrier(1, time.Millisecond, time.Millisecond), HistoryOptions{
		BatchSize:  2,
		BatchPause: time.Millisecond,
		Workers:    2,
	}, noopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	result := client.FetchAll(ctx, []model.Symbol{"AKBNK", "GARAN", "THYAO", "TUPRS"}, day.AddDate(0, 0, -10), day)

	if len(result.Series) != 2 {
		t.Fatalf("first batch should complete, got %d series", len(result.Series))
	}
	if len(result.Errors) != 2 {
		t.Fatalf("pending symbols must be recorded as failures, got %v", result.Errors)
	}
	for sym, err := range result.Errors {
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("symbol %s should fail with the deadline error, got %v", sym, err)
		}
	}
}

func TestChunkSymbols(t *testing.T) {
	syms := []model.Symbol{"AKBNK", "GARAN", "THYAO", "TUPRS", "SASA"}

	batches := chunkSymbols(syms, 2)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %v", batches)
	}

	if got := chunkSymbols(nil, 2); got != nil {
		t.Fatalf("empty input should yield no batches, got %v", got)
	}
}
