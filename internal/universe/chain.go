package universe

import (
	"context"

	"github.com/rs/zerolog"
)

// ChainSource tries each source in order and serves the first one that
// yields a non-empty universe. Source failures are logged and absorbed as
// long as a later source can still answer.
type ChainSource struct {
	sources []Source
	logger  zerolog.Logger
}

func NewChainSource(logger zerolog.Logger, sources ...Source) *ChainSource {
	return &ChainSource{
		sources: sources,
		logger:  logger.With().Str("component", "universe").Logger(),
	}
}

// Name identifies the source in logs.
func (c *ChainSource) Name() string { return "chain" }

// Load returns the first non-empty universe. The last failure is returned
// only when every source failed or came back empty.
func (c *ChainSource) Load(ctx context.Context) ([]Listing, error) {
	var lastErr error
	for _, src := range c.sources {
		listings, err := src.Load(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Str("source", src.Name()).Msg("universe source failed, trying next")
			lastErr = err
			continue
		}
		if len(listings) == 0 {
			c.logger.Warn().Str("source", src.Name()).Msg("universe source empty, trying next")
			continue
		}
		c.logger.Info().Str("source", src.Name()).Int("symbols", len(listings)).Msg("universe resolved")
		return listings, nil
	}
	return nil, lastErr
}

var _ Source = (*ChainSource)(nil)
