package app

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"bist-returns/internal/model"
	"bist-returns/internal/snapshot"
)

// SnapshotSummary prints the cached snapshot without running an acquisition.
func (a *App) SnapshotSummary(limit int) error {
	cache := snapshot.NewCache(a.Config.Snapshot.Path, a.Logger)
	snap, ok := cache.Read()
	if !ok {
		return fmt.Errorf("no readable snapshot at %s", cache.Path())
	}

	age := time.Since(snap.Timestamp).Round(time.Minute)
	fmt.Fprintf(os.Stdout, "snapshot: %s\n", cache.Path())
	fmt.Fprintf(os.Stdout, "timestamp: %s (age %s)\n", snap.Timestamp.Format(time.RFC3339), age)
	fmt.Fprintf(os.Stdout, "records: %d\n", len(snap.Records))

	movers := topMovers(snap.Records, limit)
	if len(movers) == 0 {
		return nil
	}

	fmt.Fprintln(os.Stdout)
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tName\tPrice\tDaily%\t30d%")

	for _, rec := range movers {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			rec.Symbol,
			rec.Name,
			formatPrice(rec.CurrentPrice),
			formatWindow(rec.Returns.Daily),
			formatWindow(rec.Returns.D30),
		)
	}

	writer.Flush()
	return nil
}

// topMovers ranks records by absolute daily move. Records without a daily
// figure are not movers and drop out of the ranking.
func topMovers(records []model.StockRecord, limit int) []model.StockRecord {
	movers := make([]model.StockRecord, 0, len(records))
	for _, rec := range records {
		if rec.Returns.Daily != nil {
			movers = append(movers, rec)
		}
	}

	sort.SliceStable(movers, func(i, j int) bool {
		return math.Abs(*movers[i].Returns.Daily) > math.Abs(*movers[j].Returns.Daily)
	})

	if limit > 0 && len(movers) > limit {
		movers = movers[:limit]
	}
	return movers
}
