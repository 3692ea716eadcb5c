package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bist-returns/internal/model"
)

// QuoteTableOptions parameterise the HTML quote-table provider.
type QuoteTableOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	Now       func() time.Time
}

// QuoteTable scrapes a quote page that lists per-symbol trailing return
// percentages. Expected row layout, left to right: symbol, name, last
// price, then daily/30d/90d/180d/360d percent cells. Rows that do not fit
// are skipped.
type QuoteTable struct {
	opts   QuoteTableOptions
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewQuoteTable constructs a quote-table provider.
func NewQuoteTable(opts QuoteTableOptions, logger zerolog.Logger) *QuoteTable {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &QuoteTable{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "quote_fetcher").Logger(),
		now:    now,
	}
}

// FetchQuotes retrieves and parses the quote table.
func (q *QuoteTable) FetchQuotes(ctx context.Context) ([]model.ProviderRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.opts.URL, nil)
	if err != nil {
		return nil, permanentErr("create quote request", err)
	}
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en-US;q=0.8")
	if ua := strings.TrimSpace(q.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "bistwatcher/1.0")
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, transientErr("fetch quote page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kindErr := fmt.Errorf("quote page returned %d", resp.StatusCode)
		if classifyStatus(resp.StatusCode) == KindTransient {
			return nil, transientErr("fetch quote page", kindErr)
		}
		return nil, permanentErr("fetch quote page", kindErr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, permanentErr("parse quote page", err)
	}

	fetchedAt := q.now()
	records := q.parseRows(doc, fetchedAt)

	q.logger.Info().Int("symbols", len(records)).Msg("quote table fetched")
	return records, nil
}

func (q *QuoteTable) parseRows(doc *goquery.Document, fetchedAt time.Time) []model.ProviderRecord {
	var records []model.ProviderRecord
	seen := make(map[model.Symbol]struct{})

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}

		symText := strings.TrimSpace(cells.Eq(0).Text())
		if fields := strings.Fields(symText); len(fields) > 0 {
			symText = fields[0]
		}
		sym, ok := model.ParseSymbol(symText)
		if !ok {
			return
		}
		if _, dup := seen[sym]; dup {
			return
		}
		seen[sym] = struct{}{}

		rec := model.ProviderRecord{
			Symbol:      sym,
			Name:        strings.TrimSpace(cells.Eq(1).Text()),
			LastUpdated: fetchedAt,
			Source:      "quotes",
		}

		if price, ok := parseTurkishDecimal(cells.Eq(2).Text()); ok {
			rec.CurrentPrice = &price
		}

		for i, w := range model.AllWindows {
			if pct, ok := parseTurkishDecimal(cells.Eq(3 + i).Text()); ok {
				v := pct.InexactFloat64()
				rec.Returns.SetWindow(w, &v)
			}
		}

		records = append(records, rec)
	})

	return records
}

// parseTurkishDecimal understands "1.234,56", "8,5", "-2,30", and "%" or
// currency suffixes. Empty cells and dashes report false.
func parseTurkishDecimal(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "%")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" || s == "—" {
		return decimal.Decimal{}, false
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

var _ QuoteFetcher = (*QuoteTable)(nil)
