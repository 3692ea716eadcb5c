package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"bist-returns/internal/model"
	"bist-returns/internal/snapshot"
)

// Export writes one run's records as CSV, sourced from the archive (latest
// run unless --run is given) or from the snapshot file.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" {
		return errors.New("--csv must be provided")
	}

	opts.MaxRecords = a.Config.ResolveMaxRecords(opts.MaxRecords)

	var records []model.StockRecord
	var err error
	if opts.FromSnapshot {
		records, err = a.snapshotRecords()
	} else {
		records, err = a.archivedRecords(ctx, opts.RunID)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no records found for export")
		return nil
	}

	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		records = records[:opts.MaxRecords]
	}

	a.Logger.Info().Int("records", len(records)).Str("path", opts.CSVPath).Msg("exporting records")
	return writeRecordsCSV(opts.CSVPath, records)
}

func (a *App) snapshotRecords() ([]model.StockRecord, error) {
	cache := snapshot.NewCache(a.Config.Snapshot.Path, a.Logger)
	snap, ok := cache.Read()
	if !ok {
		return nil, errors.New("no readable snapshot; run an acquisition first")
	}
	return snap.Records, nil
}

func (a *App) archivedRecords(ctx context.Context, runID string) ([]model.StockRecord, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("database not configured; use --from-snapshot or set database.dsn")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if runID == "" {
		runs, err := store.ListRecentRuns(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, errors.New("no archived runs found")
		}
		runID = runs[0].RunID
	}

	return store.ListRunRecords(ctx, runID)
}

func writeRecordsCSV(path string, records []model.StockRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"symbol", "name", "current_price", "daily", "30d", "90d", "180d", "360d", "last_updated", "source"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			string(rec.Symbol),
			rec.Name,
			formatPrice(rec.CurrentPrice),
			formatWindow(rec.Returns.Daily),
			formatWindow(rec.Returns.D30),
			formatWindow(rec.Returns.D90),
			formatWindow(rec.Returns.D180),
			formatWindow(rec.Returns.D360),
			rec.LastUpdated.Format(time.RFC3339),
			rec.Source,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatPrice(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// formatWindow renders an uncomputable window as an empty cell, never as 0.
func formatWindow(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
