package universe

import (
	"context"

	"bist-returns/internal/model"
)

// Listing pairs an equity symbol with its display name. Sources that only
// know codes leave Name empty.
type Listing struct {
	Symbol model.Symbol
	Name   string
}

// Source yields the set of tickers an acquisition run operates on.
type Source interface {
	Load(ctx context.Context) ([]Listing, error)
	Name() string
}

// dedupe keeps the first occurrence of each symbol.
func dedupe(listings []Listing) []Listing {
	seen := make(map[model.Symbol]struct{}, len(listings))
	out := listings[:0]
	for _, l := range listings {
		if _, ok := seen[l.Symbol]; ok {
			continue
		}
		seen[l.Symbol] = struct{}{}
		out = append(out, l)
	}
	return out
}
