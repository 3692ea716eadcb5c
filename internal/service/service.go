package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bist-returns/internal/alerting"
	"bist-returns/internal/config"
	"bist-returns/internal/fetcher"
	"bist-returns/internal/model"
	"bist-returns/internal/reconcile"
	"bist-returns/internal/series"
	"bist-returns/internal/snapshot"
	"bist-returns/internal/storage"
	"bist-returns/internal/universe"
	"bist-returns/pkg/id"
)

var (
	// ErrEmptyUniverse indicates no symbols could be resolved from any source.
	ErrEmptyUniverse = errors.New("service: universe resolved empty")
	// ErrNoDataNoCache indicates every provider failed and no snapshot exists.
	ErrNoDataNoCache = errors.New("service: no fresh data and no cached snapshot")
)

// Source labels for a published dataset.
const (
	SourceFresh = "fresh"
	SourceCache = "cache"
)

// HistoryProvider supplies price series for a whole universe of symbols.
type HistoryProvider interface {
	FetchAll(ctx context.Context, symbols []model.Symbol, from, to time.Time) fetcher.HistoryResult
}

// Result summarises one acquisition run.
type Result struct {
	RunID   string
	AsOf    time.Time
	Source  string
	Records []model.StockRecord
	Failed  int
}

// Service orchestrates universe resolution, fetching, reconciliation,
// snapshotting and publication.
type Service struct {
	universe  universe.Source
	histories HistoryProvider
	quotes    fetcher.QuoteFetcher
	cache     *snapshot.Cache
	store     storage.RunStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	lookbackDays int
	runTimeout   time.Duration
	location     *time.Location
	alertsOn     bool
	locker       storage.AdvisoryLocker
	lockKey      int64
	now          func() time.Time
}

// New constructs the acquisition service. The quote fetcher, store and
// notifier may be nil; the service degrades to history-only, archive-less,
// silent operation accordingly.
func New(cfg *config.Config, loc *time.Location, src universe.Source, histories HistoryProvider, quotes fetcher.QuoteFetcher, cache *snapshot.Cache, store storage.RunStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		universe:     src,
		histories:    histories,
		quotes:       quotes,
		cache:        cache,
		store:        store,
		notifier:     notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		lookbackDays: cfg.History.LookbackDays,
		runTimeout:   cfg.Service.RunTimeout,
		location:     loc,
		alertsOn:     cfg.Alerting.Enabled,
		locker:       locker,
		lockKey:      cfg.Scheduler.AdvisoryLockKey,
		now:          time.Now,
	}
}

// ProcessTick 执行单次计划运行, 先尝试获取咨询锁。
func (s *Service) ProcessTick(ctx context.Context, at time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("tick", at).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	_, err = s.RunOnce(ctx)
	return err
}

// RunOnce executes one acquisition pass: resolve the universe, fetch and
// compute per-symbol returns, reconcile providers, then publish. When every
// provider comes back empty the cached snapshot is served instead, keeping
// its original timestamp so consumers can see the data's true age.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	runID := id.NewRunID()
	asOf := s.now().In(s.location)
	logger := s.logger.With().Str("run_id", runID).Logger()

	listings, err := s.universe.Load(ctx)
	if err != nil {
		err = fmt.Errorf("resolve universe: %w", err)
		s.notify(ctx, alerting.Notification{RunID: runID, AsOf: asOf, Kind: alerting.KindFatal, Detail: err.Error()})
		return Result{}, err
	}
	if len(listings) == 0 {
		s.notify(ctx, alerting.Notification{RunID: runID, AsOf: asOf, Kind: alerting.KindFatal, Detail: ErrEmptyUniverse.Error()})
		return Result{}, ErrEmptyUniverse
	}

	symbols := make([]model.Symbol, 0, len(listings))
	names := make(map[model.Symbol]string, len(listings))
	for _, l := range listings {
		symbols = append(symbols, l.Symbol)
		if l.Name != "" {
			names[l.Symbol] = l.Name
		}
	}

	from := asOf.AddDate(0, 0, -s.lookbackDays)
	histories := s.histories.FetchAll(ctx, symbols, from, asOf)
	failed := len(histories.Errors)

	observedAt := s.now().UTC()
	skipped := 0
	historyRecords := make([]model.ProviderRecord, 0, len(histories.Series))
	for sym, ser := range histories.Series {
		rec, ok := series.BuildRecord(sym, names[sym], ser, asOf, observedAt)
		if !ok {
			skipped++
			continue
		}
		historyRecords = append(historyRecords, rec)
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("symbols without a usable current close were dropped")
	}

	var quoteRecords []model.ProviderRecord
	if s.quotes != nil {
		quoteRecords, err = s.quotes.FetchQuotes(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("secondary quotes unavailable, continuing with history only")
			quoteRecords = nil
		}
	}

	records := reconcile.Reconcile(historyRecords, quoteRecords)

	if len(records) == 0 {
		return s.publishCached(ctx, runID, asOf, failed, logger)
	}

	snap := model.Snapshot{Timestamp: asOf, Records: records}
	if err := s.cache.Write(snap); err != nil {
		logger.Error().Err(err).Msg("failed to write snapshot")
	}

	s.archive(ctx, storage.RunRecord{
		RunID:       runID,
		AsOf:        asOf,
		Source:      SourceFresh,
		RecordCount: len(records),
		FailedCount: failed,
	}, records, logger)

	logger.Info().Int("records", len(records)).Int("failed", failed).Msg("published fresh dataset")
	return Result{RunID: runID, AsOf: asOf, Source: SourceFresh, Records: records, Failed: failed}, nil
}

// publishCached serves the last good snapshot when the current run produced
// nothing. The snapshot file is left untouched.
func (s *Service) publishCached(ctx context.Context, runID string, asOf time.Time, failed int, logger zerolog.Logger) (Result, error) {
	snap, ok := s.cache.Read()
	if !ok {
		s.notify(ctx, alerting.Notification{
			RunID:  runID,
			AsOf:   asOf,
			Kind:   alerting.KindFatal,
			Detail: ErrNoDataNoCache.Error(),
			Failed: failed,
		})
		return Result{}, ErrNoDataNoCache
	}

	logger.Warn().Time("snapshot_ts", snap.Timestamp).Int("records", len(snap.Records)).Msg("providers yielded nothing, serving cached snapshot")
	s.notify(ctx, alerting.Notification{
		RunID:   runID,
		AsOf:    snap.Timestamp,
		Kind:    alerting.KindDegraded,
		Detail:  fmt.Sprintf("providers empty, published snapshot from %s", snap.Timestamp.Format(time.RFC3339)),
		Records: len(snap.Records),
		Failed:  failed,
	})

	s.archive(ctx, storage.RunRecord{
		RunID:       runID,
		AsOf:        snap.Timestamp,
		Source:      SourceCache,
		RecordCount: len(snap.Records),
		FailedCount: failed,
	}, snap.Records, logger)

	return Result{RunID: runID, AsOf: snap.Timestamp, Source: SourceCache, Records: snap.Records, Failed: failed}, nil
}

func (s *Service) archive(ctx context.Context, run storage.RunRecord, records []model.StockRecord, logger zerolog.Logger) {
	if s.store == nil {
		return
	}
	if err := s.store.InsertRun(ctx, run, records); err != nil {
		logger.Error().Err(err).Str("run_id", run.RunID).Msg("failed to archive run")
	}
}

func (s *Service) notify(ctx context.Context, note alerting.Notification) {
	if !s.alertsOn || s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("kind", note.Kind).Msg("failed to dispatch alert")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
