package universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"bist-returns/internal/model"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFileSourceFiltersAndDedupes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickers.txt")
	content := "akbnk\nAKBNK.IS\nGARAN\n\nF\nTHYAO2\ngaran\nTUPRS\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src := NewFileSource(path, noopLogger())
	listings, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []model.Symbol{"AKBNK", "GARAN", "TUPRS"}
	if len(listings) != len(want) {
		t.Fatalf("expected %d symbols, got %d (%v)", len(want), len(listings), listings)
	}
	for i, sym := range want {
		if listings[i].Symbol != sym {
			t.Fatalf("position %d: expected %s, got %s", i, sym, listings[i].Symbol)
		}
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.txt"), noopLogger())
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRemoteSourceFiltersListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Kod":"AKBNK","HisseAdi":"AKBANK T.A.S."},
			{"Kod":"GARAN","HisseAdi":"GARANTI BANKASI"},
			{"Kod":"AKBNK","HisseAdi":"AKBANK duplicate"},
			{"Kod":"AB","HisseAdi":"too short"},
			{"Kod":"USDTRY6","HisseAdi":"not an equity"},
			{"Kod":"GARAN V","HisseAdi":"warrant-ish"}
		]`))
	}))
	defer srv.Close()

	src := NewRemoteSource(RemoteOptions{URL: srv.URL}, noopLogger())
	listings, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d (%v)", len(listings), listings)
	}
	if listings[0].Symbol != "AKBNK" || listings[0].Name != "AKBANK T.A.S." {
		t.Fatalf("unexpected first listing: %+v", listings[0])
	}
	if listings[1].Symbol != "GARAN" {
		t.Fatalf("unexpected second listing: %+v", listings[1])
	}
}

func TestRemoteSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewRemoteSource(RemoteOptions{URL: srv.URL}, noopLogger())
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error for non-200 listing response")
	}
}

func TestStaticSourceServesValidSymbols(t *testing.T) {
	src := NewStaticSource()
	listings, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(listings) == 0 {
		t.Fatal("fallback list must not be empty")
	}
	for _, l := range listings {
		if !l.Symbol.Valid() {
			t.Fatalf("fallback symbol %q fails the shape rule", l.Symbol)
		}
	}
}

type stubSource struct {
	name     string
	listings []Listing
	err      error
	calls    int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Load(ctx context.Context) ([]Listing, error) {
	s.calls++
	return s.listings, s.err
}

func TestChainSourceFallsThrough(t *testing.T) {
	broken := &stubSource{name: "remote", err: context.DeadlineExceeded}
	empty := &stubSource{name: "file"}
	good := &stubSource{name: "static", listings: []Listing{{Symbol: "AKBNK"}}}

	chain := NewChainSource(noopLogger(), broken, empty, good)
	listings, err := chain.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(listings) != 1 || listings[0].Symbol != "AKBNK" {
		t.Fatalf("expected the static stub to answer, got %v", listings)
	}
	if broken.calls != 1 || empty.calls != 1 || good.calls != 1 {
		t.Fatalf("every source up to the first success should be tried once")
	}
}

func TestChainSourceStopsAtFirstSuccess(t *testing.T) {
	first := &stubSource{name: "file", listings: []Listing{{Symbol: "GARAN"}}}
	second := &stubSource{name: "remote", listings: []Listing{{Symbol: "AKBNK"}}}

	chain := NewChainSource(noopLogger(), first, second)
	listings, err := chain.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(listings) != 1 || listings[0].Symbol != "GARAN" {
		t.Fatalf("expected the first stub to answer, got %v", listings)
	}
	if second.calls != 0 {
		t.Fatal("later sources must not be queried after a success")
	}
}

func TestChainSourceAllFail(t *testing.T) {
	broken := &stubSource{name: "remote", err: context.DeadlineExceeded}

	chain := NewChainSource(noopLogger(), broken)
	if _, err := chain.Load(context.Background()); err == nil {
		t.Fatal("expected the last failure to surface")
	}
}
