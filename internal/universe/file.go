package universe

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"bist-returns/internal/model"
)

// FileSource reads one symbol per line from a local file. Entries may carry
// a ".IS" suffix; lines that do not look like equities are dropped.
type FileSource struct {
	path   string
	logger zerolog.Logger
}

// NewFileSource constructs a file-backed universe source.
func NewFileSource(path string, logger zerolog.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger.With().Str("component", "universe_file").Logger(),
	}
}

// Name identifies the source in logs and published records.
func (f *FileSource) Name() string { return "file" }

// Load parses the ticker file.
func (f *FileSource) Load(ctx context.Context) ([]Listing, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer file.Close()

	var listings []Listing
	dropped := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		sym, ok := model.ParseSymbol(line)
		if !ok {
			if line != "" {
				dropped++
			}
			continue
		}
		listings = append(listings, Listing{Symbol: sym})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan universe file: %w", err)
	}

	listings = dedupe(listings)
	f.logger.Info().Str("path", f.path).Int("symbols", len(listings)).Int("dropped", dropped).Msg("universe loaded from file")
	return listings, nil
}

var _ Source = (*FileSource)(nil)
