package series

import (
	"time"

	"github.com/shopspring/decimal"

	"bist-returns/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ComputeReturn yields the percentage change from past to current,
// (current-past)/past*100. A nil, zero, or negative reference close makes
// the return uncomputable and yields nil rather than a fabricated zero.
func ComputeReturn(current decimal.Decimal, past *decimal.Decimal) *float64 {
	if past == nil || past.Sign() <= 0 {
		return nil
	}

	pct, _ := current.Sub(*past).Div(*past).Mul(hundred).Float64()
	return &pct
}

// WindowTarget returns the calendar reference date of w relative to asOf.
// The daily window has no calendar target; it resolves by session instead.
func WindowTarget(asOf time.Time, w model.ReturnWindow) time.Time {
	return asOf.AddDate(0, 0, -w.Days())
}

// BuildRecord derives a provider record for one symbol from its close
// series. The current price is the latest close on or before asOf; each
// calendar window resolves through on-or-before lookups and stays absent
// when its reference close cannot be found. The second return is false when
// the series has no usable current close.
func BuildRecord(symbol model.Symbol, name string, s model.PriceSeries, asOf, observedAt time.Time) (model.ProviderRecord, bool) {
	last, ok := ResolveOnOrBefore(s, asOf)
	if !ok || last.Close.Sign() <= 0 {
		return model.ProviderRecord{}, false
	}

	current := last.Close
	rec := model.ProviderRecord{
		Symbol:       symbol,
		Name:         name,
		CurrentPrice: &current,
		LastUpdated:  observedAt,
		Source:       "history",
	}

	if prev, ok := ResolvePreviousSession(s, last.Date); ok {
		prevClose := prev.Close
		rec.Returns.Daily = ComputeReturn(current, &prevClose)
	}

	for _, w := range model.AllWindows {
		if w == model.WindowDaily {
			continue
		}
		if p, ok := ResolveOnOrBefore(s, WindowTarget(asOf, w)); ok {
			refClose := p.Close
			rec.Returns.SetWindow(w, ComputeReturn(current, &refClose))
		}
	}

	return rec, true
}
