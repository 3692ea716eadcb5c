package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrierStopsOnPermanent(t *testing.T) {
	r := NewRetrier(3, time.Millisecond, 10*time.Millisecond)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanentErr("fetch", errors.New("symbol not found"))
	})

	if err == nil {
		t.Fatal("expected permanent error to propagate")
	}
	if calls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", calls)
	}
}

func TestRetrierRecoversFromTransient(t *testing.T) {
	r := NewRetrier(3, time.Millisecond, 10*time.Millisecond)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return transientErr("fetch", errors.New("status 503"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	r := NewRetrier(3, time.Millisecond, 10*time.Millisecond)

	calls := 0
	wantErr := transientErr("fetch", errors.New("status 502"))
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if !IsTransient(err) {
		t.Fatal("returned error must keep its classification")
	}
}

func TestRetrierHonorsCancelledContext(t *testing.T) {
	r := NewRetrier(3, time.Second, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		return transientErr("fetch", errors.New("should not run"))
	})

	if calls != 0 {
		t.Fatalf("cancelled context must prevent attempts, got %d calls", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
