// Package snapshot persists the last published dataset so a run whose
// providers all fail can fall back to previously good data.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"bist-returns/internal/model"
)

// Cache reads and writes the single latest snapshot at a fixed path.
// There is no expiry: stale data is the caller's problem to flag, not
// the cache's to withhold.
type Cache struct {
	path   string
	logger zerolog.Logger
}

func NewCache(path string, logger zerolog.Logger) *Cache {
	return &Cache{
		path:   path,
		logger: logger.With().Str("component", "snapshot").Logger(),
	}
}

// Path returns the snapshot location on disk.
func (c *Cache) Path() string { return c.path }

// Read loads the cached snapshot. A missing or unreadable file is a miss,
// not an error: the cache is an optional safety net and the caller decides
// whether running without it is fatal.
func (c *Cache) Read() (model.Snapshot, bool) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn().Err(err).Str("path", c.path).Msg("snapshot unreadable, treating as miss")
		}
		return model.Snapshot{}, false
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn().Err(err).Str("path", c.path).Msg("snapshot corrupt, treating as miss")
		return model.Snapshot{}, false
	}

	return snap, true
}

// Write replaces the snapshot atomically: the payload lands in a temp file
// in the same directory, is fsynced, then renamed over the target. Readers
// never observe a partially written snapshot.
func (c *Cache) Write(snap model.Snapshot) error {
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := c.path + ".part"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	c.logger.Info().Str("path", c.path).Int("records", len(snap.Records)).Msg("snapshot written")
	return nil
}
