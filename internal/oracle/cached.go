package oracle

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/updownlabs/updown/internal/domain"
)

// Cached decorates a PriceOracle, mirroring every successful observation
// into the price cache so the read model can serve prices without paying
// lookup fees. Cache failures are logged and never affect the lookup.
type Cached struct {
	inner  domain.PriceOracle
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewCached wraps inner with write-through caching.
func NewCached(inner domain.PriceOracle, cache domain.PriceCache, logger *slog.Logger) *Cached {
	return &Cached{
		inner:  inner,
		cache:  cache,
		logger: logger.With(slog.String("component", "oracle_cache")),
	}
}

// LookupFee delegates to the wrapped oracle.
func (c *Cached) LookupFee(ctx context.Context, feedID string) (*big.Int, error) {
	return c.inner.LookupFee(ctx, feedID)
}

// LatestPrice delegates to the wrapped oracle and records the observation.
func (c *Cached) LatestPrice(ctx context.Context, feedID string) (domain.PriceData, error) {
	price, err := c.inner.LatestPrice(ctx, feedID)
	if err != nil {
		return domain.PriceData{}, err
	}
	if cacheErr := c.cache.SetPrice(ctx, feedID, price); cacheErr != nil {
		c.logger.WarnContext(ctx, "price cache write failed",
			slog.String("feed", feedID),
			slog.String("error", cacheErr.Error()),
		)
	}
	return price, nil
}

var _ domain.PriceOracle = (*Cached)(nil)
