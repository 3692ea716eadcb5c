package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bist-returns/internal/model"
)

// Merge resolves one symbol's provider records into a published record.
// A single input is adopted verbatim. With several inputs each field is
// taken from the most recently updated input that supplies it; inputs tied
// at that timestamp average their values. A field no input supplies stays
// absent. Merge never fails on disagreement; the second return is false
// only for an empty input set.
func Merge(inputs []model.ProviderRecord) (model.StockRecord, bool) {
	if len(inputs) == 0 {
		return model.StockRecord{}, false
	}

	if len(inputs) == 1 {
		in := inputs[0]
		return model.StockRecord{
			Symbol:       in.Symbol,
			Name:         in.Name,
			CurrentPrice: in.CurrentPrice,
			Returns:      in.Returns,
			LastUpdated:  in.LastUpdated,
			Source:       in.Source,
		}, true
	}

	out := model.StockRecord{
		Symbol:      inputs[0].Symbol,
		Name:        mergeName(inputs),
		LastUpdated: newestTimestamp(inputs),
		Source:      mergeSource(inputs),
	}

	out.CurrentPrice = mergePrice(inputs)
	for _, w := range model.AllWindows {
		out.Returns.SetWindow(w, mergeWindow(inputs, w))
	}

	return out, true
}

// Reconcile merges any number of provider record sets into the published
// dataset, keyed by symbol. Symbols known to only one provider pass
// through. Output order is deterministic (sorted by symbol).
func Reconcile(sets ...[]model.ProviderRecord) []model.StockRecord {
	grouped := make(map[model.Symbol][]model.ProviderRecord)
	for _, set := range sets {
		for _, rec := range set {
			grouped[rec.Symbol] = append(grouped[rec.Symbol], rec)
		}
	}

	symbols := make([]model.Symbol, 0, len(grouped))
	for sym := range grouped {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	out := make([]model.StockRecord, 0, len(symbols))
	for _, sym := range symbols {
		if rec, ok := Merge(grouped[sym]); ok {
			out = append(out, rec)
		}
	}
	return out
}

func newestTimestamp(inputs []model.ProviderRecord) time.Time {
	newest := inputs[0].LastUpdated
	for _, in := range inputs[1:] {
		if in.LastUpdated.After(newest) {
			newest = in.LastUpdated
		}
	}
	return newest
}

func mergeName(inputs []model.ProviderRecord) string {
	name := ""
	var nameTS time.Time
	for _, in := range inputs {
		if in.Name == "" {
			continue
		}
		if name == "" || in.LastUpdated.After(nameTS) {
			name = in.Name
			nameTS = in.LastUpdated
		}
	}
	return name
}

func mergeSource(inputs []model.ProviderRecord) string {
	uniq := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Source != "" {
			uniq[in.Source] = struct{}{}
		}
	}

	sources := make([]string, 0, len(uniq))
	for s := range uniq {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	switch len(sources) {
	case 0:
		return ""
	case 1:
		return sources[0]
	default:
		return strings.Join(sources, "+")
	}
}

func mergePrice(inputs []model.ProviderRecord) *decimal.Decimal {
	var winners []decimal.Decimal
	var winnerTS time.Time

	for _, in := range inputs {
		if in.CurrentPrice == nil {
			continue
		}
		switch {
		case len(winners) == 0 || in.LastUpdated.After(winnerTS):
			winners = winners[:0]
			winners = append(winners, *in.CurrentPrice)
			winnerTS = in.LastUpdated
		case in.LastUpdated.Equal(winnerTS):
			winners = append(winners, *in.CurrentPrice)
		}
	}

	if len(winners) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, v := range winners {
		sum = sum.Add(v)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(winners))))
	return &avg
}

func mergeWindow(inputs []model.ProviderRecord, w model.ReturnWindow) *float64 {
	var winners []float64
	var winnerTS time.Time

	for _, in := range inputs {
		v := in.Returns.Window(w)
		if v == nil {
			continue
		}
		switch {
		case len(winners) == 0 || in.LastUpdated.After(winnerTS):
			winners = winners[:0]
			winners = append(winners, *v)
			winnerTS = in.LastUpdated
		case in.LastUpdated.Equal(winnerTS):
			winners = append(winners, *v)
		}
	}

	if len(winners) == 0 {
		return nil
	}

	sum := 0.0
	for _, v := range winners {
		sum += v
	}
	avg := sum / float64(len(winners))
	return &avg
}
