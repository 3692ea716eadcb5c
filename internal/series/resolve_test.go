package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist-returns/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seriesOf(t *testing.T, closes map[string]float64) model.PriceSeries {
	t.Helper()

	points := make([]model.PricePoint, 0, len(closes))
	for date, close := range closes {
		parsed, err := time.Parse("2006-01-02", date)
		require.NoError(t, err)
		points = append(points, model.PricePoint{Date: parsed.UTC(), Close: decimal.NewFromFloat(close)})
	}
	return model.NewPriceSeries(points)
}

func TestResolveOnOrBeforeExactHit(t *testing.T) {
	s := seriesOf(t, map[string]float64{
		"2024-04-29": 100,
		"2024-04-30": 101,
		"2024-05-02": 103,
	})

	p, ok := ResolveOnOrBefore(s, day(2024, 4, 30))
	require.True(t, ok)
	assert.True(t, p.Date.Equal(day(2024, 4, 30)))
	assert.True(t, p.Close.Equal(decimal.NewFromInt(101)))
}

func TestResolveOnOrBeforeSettlesBackward(t *testing.T) {
	// 2024-05-04 is a Saturday; the nearest session is Friday the 3rd.
	s := seriesOf(t, map[string]float64{
		"2024-05-02": 103,
		"2024-05-03": 104,
		"2024-05-06": 105,
	})

	p, ok := ResolveOnOrBefore(s, day(2024, 5, 4))
	require.True(t, ok)
	assert.True(t, p.Date.Equal(day(2024, 5, 3)))
}

func TestResolveOnOrBeforeNeverPicksLaterDate(t *testing.T) {
	s := seriesOf(t, map[string]float64{
		"2024-05-02": 103,
		"2024-05-06": 105,
	})

	p, ok := ResolveOnOrBefore(s, day(2024, 5, 5))
	require.True(t, ok)
	assert.True(t, p.Date.Equal(day(2024, 5, 2)), "gap targets must settle to the earlier session")
}

func TestResolveOnOrBeforeBeforeSeriesStart(t *testing.T) {
	s := seriesOf(t, map[string]float64{"2024-05-02": 103})

	_, ok := ResolveOnOrBefore(s, day(2024, 5, 1))
	assert.False(t, ok, "a target predating the series has no resolution")
}

func TestResolveOnOrBeforeAfterSeriesEnd(t *testing.T) {
	s := seriesOf(t, map[string]float64{
		"2024-05-02": 103,
		"2024-05-03": 104,
	})

	p, ok := ResolveOnOrBefore(s, day(2024, 6, 1))
	require.True(t, ok)
	assert.True(t, p.Date.Equal(day(2024, 5, 3)), "targets past the series end resolve to the last point")
}

func TestResolveOnOrBeforeEmptySeries(t *testing.T) {
	_, ok := ResolveOnOrBefore(model.NewPriceSeries(nil), day(2024, 5, 1))
	assert.False(t, ok)
}

func TestResolvePreviousSessionStrictlyEarlier(t *testing.T) {
	s := seriesOf(t, map[string]float64{
		"2024-05-02": 103,
		"2024-05-03": 104,
		"2024-05-06": 105,
	})

	p, ok := ResolvePreviousSession(s, day(2024, 5, 6))
	require.True(t, ok)
	assert.True(t, p.Date.Equal(day(2024, 5, 3)), "previous session skips the weekend")

	_, ok = ResolvePreviousSession(s, day(2024, 5, 2))
	assert.False(t, ok, "the first session has no predecessor")
}

func TestResolvePreviousSessionUnlistedFrom(t *testing.T) {
	s := seriesOf(t, map[string]float64{
		"2024-05-02": 103,
		"2024-05-06": 105,
	})

	// A from-date between sessions still resolves to the last earlier one.
	p, ok := ResolvePreviousSession(s, day(2024, 5, 4))
	require.True(t, ok)
	assert.True(t, p.Date.Equal(day(2024, 5, 2)))
}
