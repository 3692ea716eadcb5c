package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bist-returns/internal/model"
)

const chartPath = "/v8/finance/chart/"

// ChartOptions parameterise the daily-bar chart API client.
type ChartOptions struct {
	BaseURL      string
	SymbolSuffix string
	Timeout      time.Duration
	UserAgent    string
	Location     *time.Location
}

// Chart fetches daily close history from a Yahoo-chart-shaped JSON API.
type Chart struct {
	opts    ChartOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	loc     *time.Location
}

// NewChart constructs a chart history client.
func NewChart(opts ChartOptions, logger zerolog.Logger) *Chart {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Chart{
		opts:    opts,
		logger:  logger.With().Str("component", "chart_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		loc:     loc,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory retrieves daily closes for symbol between from and to. Null
// bars (holidays, halted sessions) are skipped. A response that parses but
// carries no bars yields an empty series without an error.
func (c *Chart) FetchHistory(ctx context.Context, symbol model.Symbol, from, to time.Time) (model.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s%s%s?interval=1d&period1=%d&period2=%d",
		c.baseURL,
		chartPath,
		url.PathEscape(symbol.ProviderSymbol(c.opts.SymbolSuffix)),
		from.Unix(),
		to.Unix(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceSeries{}, permanentErr("create chart request", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "bistwatcher/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.PriceSeries{}, transientErr("fetch chart", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.PriceSeries{}, transientErr("read chart body", err)
	}

	if resp.StatusCode != http.StatusOK {
		kindErr := fmt.Errorf("chart endpoint returned %d", resp.StatusCode)
		if classifyStatus(resp.StatusCode) == KindTransient {
			return model.PriceSeries{}, transientErr("fetch chart", kindErr)
		}
		return model.PriceSeries{}, permanentErr("fetch chart", kindErr)
	}

	if len(body) == 0 {
		return model.PriceSeries{}, transientErr("fetch chart", errors.New("empty response body"))
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.PriceSeries{}, permanentErr("decode chart response", err)
	}

	if payload.Chart.Error != nil {
		apiErr := fmt.Errorf("%s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
		return model.PriceSeries{}, permanentErr("chart api error", apiErr)
	}

	if len(payload.Chart.Result) == 0 {
		return model.NewPriceSeries(nil), nil
	}

	result := payload.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return model.NewPriceSeries(nil), nil
	}

	closes := result.Indicators.Quote[0].Close
	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, model.PricePoint{
			Date:  model.Day(time.Unix(ts, 0), c.loc),
			Close: decimal.NewFromFloat(*closes[i]),
		})
	}

	series := model.NewPriceSeries(points)
	c.logger.Debug().Str("symbol", string(symbol)).Int("bars", series.Len()).Msg("chart history fetched")
	return series, nil
}

var _ HistoryFetcher = (*Chart)(nil)
