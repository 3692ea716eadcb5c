package universe

import (
	"context"

	"bist-returns/internal/model"
)

// fallbackSymbols is a short list of liquid BIST names used when neither a
// file nor the listing endpoint is available.
var fallbackSymbols = []model.Symbol{
	"AKBNK", "ARCLK", "ASELS", "BIMAS", "EKGYO",
	"EREGL", "FROTO", "GARAN", "GUBRF", "HEKTS",
	"KCHOL", "KOZAL", "KRDMD", "PETKM", "PGSUS",
	"SAHOL", "SASA", "SISE", "TCELL", "THYAO",
	"TOASO", "TTKOM", "TUPRS", "ULKER", "VESTL",
	"YKBNK",
}

// StaticSource serves the built-in fallback list.
type StaticSource struct{}

// NewStaticSource constructs the fallback source.
func NewStaticSource() *StaticSource { return &StaticSource{} }

// Name identifies the source in logs and published records.
func (s *StaticSource) Name() string { return "static" }

// Load returns the fallback listing.
func (s *StaticSource) Load(ctx context.Context) ([]Listing, error) {
	listings := make([]Listing, 0, len(fallbackSymbols))
	for _, sym := range fallbackSymbols {
		listings = append(listings, Listing{Symbol: sym})
	}
	return listings, nil
}

var _ Source = (*StaticSource)(nil)
