package series

import (
	"sort"
	"time"

	"bist-returns/internal/model"
)

// ResolveOnOrBefore returns the latest point dated on or before target.
// Weekend and holiday targets settle backward onto the nearest session; a
// target earlier than the whole series reports false. A later date is never
// substituted.
func ResolveOnOrBefore(s model.PriceSeries, target time.Time) (model.PricePoint, bool) {
	idx := sort.Search(s.Len(), func(i int) bool { return s.At(i).Date.After(target) })
	if idx == 0 {
		return model.PricePoint{}, false
	}
	return s.At(idx - 1), true
}

// ResolvePreviousSession returns the latest point dated strictly before
// from. The daily window uses this so that the reference close belongs to
// the session preceding the current one even across weekends and holidays.
func ResolvePreviousSession(s model.PriceSeries, from time.Time) (model.PricePoint, bool) {
	idx := sort.Search(s.Len(), func(i int) bool { return !s.At(i).Date.Before(from) })
	if idx == 0 {
		return model.PricePoint{}, false
	}
	return s.At(idx - 1), true
}
