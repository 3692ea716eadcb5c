package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bist-returns/internal/model"
)

// RemoteOptions parameterise the listing endpoint client.
type RemoteOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// RemoteSource fetches the full exchange listing from a JSON endpoint in the
// İş Yatırım allstocks shape: [{"Kod":"AKBNK","HisseAdi":"AKBANK T.A.S.",...}].
type RemoteSource struct {
	opts   RemoteOptions
	client *http.Client
	logger zerolog.Logger
}

// NewRemoteSource constructs a remote universe source.
func NewRemoteSource(opts RemoteOptions, logger zerolog.Logger) *RemoteSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &RemoteSource{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "universe_remote").Logger(),
	}
}

// Name identifies the source in logs and published records.
func (r *RemoteSource) Name() string { return "remote" }

type listingEntry struct {
	Kod      string `json:"Kod"`
	HisseAdi string `json:"HisseAdi"`
}

// Load retrieves and filters the exchange listing.
func (r *RemoteSource) Load(ctx context.Context) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create listing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read listing body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing endpoint returned %d", resp.StatusCode)
	}

	var entries []listingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	listings := make([]Listing, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		sym, ok := model.ParseSymbol(e.Kod)
		if !ok {
			dropped++
			continue
		}
		listings = append(listings, Listing{Symbol: sym, Name: strings.TrimSpace(e.HisseAdi)})
	}

	listings = dedupe(listings)
	r.logger.Info().Int("symbols", len(listings)).Int("dropped", dropped).Msg("universe loaded from listing endpoint")
	return listings, nil
}

var _ Source = (*RemoteSource)(nil)
