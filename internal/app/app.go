package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bist-returns/internal/alerting"
	"bist-returns/internal/config"
	"bist-returns/internal/fetcher"
	"bist-returns/internal/model"
	"bist-returns/internal/scheduler"
	"bist-returns/internal/service"
	"bist-returns/internal/snapshot"
	"bist-returns/internal/storage"
	"bist-returns/internal/universe"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Config.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", a.Config.App.Timezone, err)
	}
	return loc, nil
}

func (a *App) newUniverseSource() universe.Source {
	sources := make([]universe.Source, 0, 3)
	if a.Config.Universe.FilePath != "" {
		sources = append(sources, universe.NewFileSource(a.Config.Universe.FilePath, a.Logger))
	}
	sources = append(sources, universe.NewRemoteSource(universe.RemoteOptions{
		URL:       a.Config.Universe.URL,
		Timeout:   a.Config.Universe.RequestTimeout,
		UserAgent: a.Config.Universe.UserAgent,
	}, a.Logger))
	sources = append(sources, universe.NewStaticSource())
	return universe.NewChainSource(a.Logger, sources...)
}

func (a *App) newHistoryProvider(loc *time.Location) *fetcher.HistoryClient {
	chart := fetcher.NewChart(fetcher.ChartOptions{
		BaseURL:      a.Config.History.BaseURL,
		SymbolSuffix: a.Config.History.SymbolSuffix,
		Timeout:      a.Config.History.RequestTimeout,
		UserAgent:    a.Config.History.UserAgent,
		Location:     loc,
	}, a.Logger)

	retrier := fetcher.NewRetrier(
		a.Config.History.MaxAttempts,
		a.Config.History.RetryBaseDelay,
		a.Config.History.RetryMaxDelay,
	)

	return fetcher.NewHistoryClient(chart, retrier, fetcher.HistoryOptions{
		BatchSize:  a.Config.History.BatchSize,
		BatchPause: a.Config.History.BatchPause,
		Workers:    a.Config.History.Workers,
	}, a.Logger)
}

func (a *App) newQuoteFetcher() fetcher.QuoteFetcher {
	if !a.Config.Quotes.Enabled {
		return nil
	}
	return fetcher.NewQuoteTable(fetcher.QuoteTableOptions{
		URL:       a.Config.Quotes.URL,
		Timeout:   a.Config.Quotes.RequestTimeout,
		UserAgent: a.Config.Quotes.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(loc *time.Location, store *storage.Store) *service.Service {
	var runStore storage.RunStore
	if store != nil {
		runStore = store
	}

	return service.New(
		a.Config,
		loc,
		a.newUniverseSource(),
		a.newHistoryProvider(loc),
		a.newQuoteFetcher(),
		snapshot.NewCache(a.Config.Snapshot.Path, a.Logger),
		runStore,
		a.newNotifier(),
		a.Logger,
	)
}

// RunOptions configure a one-shot acquisition run.
type RunOptions struct {
	OutputPath string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a run's records.
type ExportOptions struct {
	RunID        string
	CSVPath      string
	FromSnapshot bool
	MaxRecords   int
}

// RunOnce executes a single acquisition run and optionally writes the
// published dataset to a file ("-" for stdout).
func (a *App) RunOnce(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.Config.Service.RunTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, a.Config.Service.RunTimeout)
		defer cancelTimeout()
	}

	loc, err := a.location()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; run archive disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(loc, store)

	result, err := svc.RunOnce(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("acquisition run failed")
		return err
	}

	a.Logger.Info().
		Str("run_id", result.RunID).
		Str("source", result.Source).
		Int("records", len(result.Records)).
		Int("failed", result.Failed).
		Msg("acquisition run finished")

	if opts.OutputPath != "" {
		return a.writeDataset(result, opts.OutputPath)
	}
	return nil
}

// Watch runs scheduled acquisitions until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc, err := a.location()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; run archive and run locking disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(loc, store)

	sched := scheduler.New(scheduler.Options{
		CronSpec:     a.Config.Scheduler.Cron,
		Location:     loc,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Msg("starting watch mode")
	err = sched.Run(ctx, svc.ProcessTick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch stopped")
	return nil
}

func (a *App) writeDataset(result service.Result, path string) error {
	snap := model.Snapshot{Timestamp: result.AsOf, Records: result.Records}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	payload = append(payload, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(payload)
		return err
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	a.Logger.Info().Str("path", path).Msg("dataset written")
	return nil
}
