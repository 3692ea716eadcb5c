package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const quotePageHTML = `<html><body>
<table>
<tr><th>Hisse</th><th>Ad</th><th>Son</th><th>Günlük</th><th>30G</th><th>90G</th><th>180G</th><th>360G</th></tr>
<tr><td>AKBNK</td><td>Akbank</td><td>45,62</td><td>%1,25</td><td>10,00</td><td>-2,30</td><td>1.150,5</td><td>95,0</td></tr>
<tr><td>GARAN</td><td>Garanti</td><td>92,10</td><td>5,8</td><td>-</td><td>30,0</td><td>45,0</td><td>130,0</td></tr>
<tr><td>USDTRY6</td><td>not equity</td><td>1</td><td>2</td><td>3</td><td>4</td><td>5</td><td>6</td></tr>
<tr><td>SASA</td><td>short row</td><td>10,0</td></tr>
</table>
</body></html>`

func TestQuoteTableParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(quotePageHTML))
	}))
	defer srv.Close()

	fetched := time.Date(2024, 5, 3, 18, 30, 0, 0, time.UTC)
	q := NewQuoteTable(QuoteTableOptions{
		URL:     srv.URL,
		Timeout: time.Second,
		Now:     func() time.Time { return fetched },
	}, noopLogger())

	records, err := q.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("fetch quotes: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 parsable rows, got %d (%v)", len(records), records)
	}

	akbnk := records[0]
	if akbnk.Symbol != "AKBNK" || akbnk.Name != "Akbank" {
		t.Fatalf("unexpected first record: %+v", akbnk)
	}
	if akbnk.CurrentPrice == nil || akbnk.CurrentPrice.String() != "45.62" {
		t.Fatalf("Turkish decimal price parsed wrong: %v", akbnk.CurrentPrice)
	}
	if akbnk.Returns.Daily == nil || *akbnk.Returns.Daily != 1.25 {
		t.Fatalf("percent prefix should be stripped: %v", akbnk.Returns.Daily)
	}
	if akbnk.Returns.D90 == nil || *akbnk.Returns.D90 != -2.3 {
		t.Fatalf("negative comma decimal parsed wrong: %v", akbnk.Returns.D90)
	}
	if akbnk.Returns.D180 == nil || *akbnk.Returns.D180 != 1150.5 {
		t.Fatalf("thousands separator parsed wrong: %v", akbnk.Returns.D180)
	}
	if !akbnk.LastUpdated.Equal(fetched) {
		t.Fatalf("records must carry the fetch time, got %s", akbnk.LastUpdated)
	}

	garan := records[1]
	if garan.Returns.D30 != nil {
		t.Fatalf("dash cell must stay absent, got %v", *garan.Returns.D30)
	}
	if garan.Returns.Daily == nil || *garan.Returns.Daily != 5.8 {
		t.Fatalf("plain comma-free decimal parsed wrong: %v", garan.Returns.Daily)
	}
}

func TestQuoteTableHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	q := NewQuoteTable(QuoteTableOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := q.FetchQuotes(context.Background())
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !IsTransient(err) {
		t.Fatal("503 should be classified transient")
	}
}

func TestParseTurkishDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"45,62", "45.62", true},
		{"1.234,56", "1234.56", true},
		{"%8,5", "8.5", true},
		{"-2,30", "-2.30", true},
		{"12.5", "12.5", true},
		{"", "", false},
		{"-", "", false},
		{"n/a", "", false},
	}

	for _, tc := range cases {
		got, ok := parseTurkishDecimal(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if ok && got.String() != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got.String())
		}
	}
}
