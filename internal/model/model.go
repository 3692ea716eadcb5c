package model

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// symbolShape accepts plain BIST equity codes and rejects warrant/fund style
// listings (trailing digits, suffixed classes).
var symbolShape = regexp.MustCompile(`^[A-Z]{3,6}$`)

// Symbol is an exchange-local equity code such as "AKBNK".
type Symbol string

// ParseSymbol normalises a raw listing entry into a Symbol. Input may carry
// surrounding whitespace, lowercase letters, or a ".IS" provider suffix.
// The second return is false when the entry does not look like an equity.
func ParseSymbol(raw string) (Symbol, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".IS")
	if !symbolShape.MatchString(s) {
		return "", false
	}
	return Symbol(s), true
}

// Valid reports whether the symbol matches the equity shape rule.
func (s Symbol) Valid() bool {
	return symbolShape.MatchString(string(s))
}

// ProviderSymbol renders the symbol in provider notation, e.g. "AKBNK.IS".
func (s Symbol) ProviderSymbol(suffix string) string {
	return string(s) + suffix
}

// Day truncates a timestamp to its calendar date in loc and rebases it to a
// UTC midnight. Series arithmetic compares dates only, never clock times.
func Day(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// PriceSeries is an ordered run of daily closes with strictly increasing
// unique dates.
type PriceSeries struct {
	points []PricePoint
}

// NewPriceSeries builds a series from unordered points. Points sharing a
// date collapse to the last occurrence.
func NewPriceSeries(points []PricePoint) PriceSeries {
	byDate := make(map[time.Time]PricePoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}

	out := make([]PricePoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return PriceSeries{points: out}
}

// Len returns the number of points.
func (s PriceSeries) Len() int {
	return len(s.points)
}

// At returns the point at index i, oldest first.
func (s PriceSeries) At(i int) PricePoint {
	return s.points[i]
}

// Last returns the newest point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// ReturnWindow names a trailing return horizon.
type ReturnWindow string

const (
	WindowDaily ReturnWindow = "daily"
	Window30D   ReturnWindow = "30d"
	Window90D   ReturnWindow = "90d"
	Window180D  ReturnWindow = "180d"
	Window360D  ReturnWindow = "360d"
)

// AllWindows lists every window in presentation order.
var AllWindows = []ReturnWindow{WindowDaily, Window30D, Window90D, Window180D, Window360D}

// Days returns the calendar-day offset of the window. Daily resolves by
// session rather than by offset and reports zero.
func (w ReturnWindow) Days() int {
	switch w {
	case Window30D:
		return 30
	case Window90D:
		return 90
	case Window180D:
		return 180
	case Window360D:
		return 360
	default:
		return 0
	}
}

// ReturnSet carries one value per window. A nil entry means the window could
// not be computed and serialises as JSON null; zero is never used as a stand-in.
type ReturnSet struct {
	Daily *float64 `json:"daily"`
	D30   *float64 `json:"30d"`
	D90   *float64 `json:"90d"`
	D180  *float64 `json:"180d"`
	D360  *float64 `json:"360d"`
}

// Window returns the value slot for w.
func (r ReturnSet) Window(w ReturnWindow) *float64 {
	switch w {
	case WindowDaily:
		return r.Daily
	case Window30D:
		return r.D30
	case Window90D:
		return r.D90
	case Window180D:
		return r.D180
	case Window360D:
		return r.D360
	default:
		return nil
	}
}

// SetWindow stores v into the slot for w.
func (r *ReturnSet) SetWindow(w ReturnWindow, v *float64) {
	switch w {
	case WindowDaily:
		r.Daily = v
	case Window30D:
		r.D30 = v
	case Window90D:
		r.D90 = v
	case Window180D:
		r.D180 = v
	case Window360D:
		r.D360 = v
	}
}

// StockRecord is the published per-symbol result. CurrentPrice is nil when
// no reconciled input supplied a price, and serialises as JSON null.
type StockRecord struct {
	Symbol       Symbol           `json:"symbol"`
	Name         string           `json:"name"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
	Returns      ReturnSet        `json:"returns"`
	LastUpdated  time.Time        `json:"last_updated"`
	Source       string           `json:"source"`
}

// ProviderRecord is one provider's partial view of a symbol before
// reconciliation. CurrentPrice is nil when the provider reports returns only.
type ProviderRecord struct {
	Symbol       Symbol
	Name         string
	CurrentPrice *decimal.Decimal
	Returns      ReturnSet
	LastUpdated  time.Time
	Source       string
}

// Snapshot is the persisted dataset of one published run.
type Snapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Records   []StockRecord `json:"data"`
}

// SortRecords orders records by symbol for stable output.
func SortRecords(records []StockRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })
}
