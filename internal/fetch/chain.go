package fetch

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain walks the acquisition tiers in order. Each tier gets in-tier
// retries for transient failures; terminal failures promote to the next
// tier immediately. The first success wins.
type Chain struct {
	logger *slog.Logger
	tiers  []Fetcher
}

// NewChain builds a chain over the given tiers, tried in argument order.
func NewChain(logger *slog.Logger, tiers ...Fetcher) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{logger: logger.With("component", "fetch"), tiers: tiers}
}

// Fetch tries each tier until one succeeds. When all fail, the returned
// error wraps ErrAllTiersFailed plus the last tier's error.
func (c *Chain) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	for i, tier := range c.tiers {
		resp, err := withRetry(ctx, func() (*Response, error) {
			return tier.Fetch(ctx, rawURL)
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i < len(c.tiers)-1 {
			c.logger.Debug("tier failed, promoting",
				"url", rawURL,
				"tier", i,
				"error", err)
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrAllTiersFailed, lastErr)
}
