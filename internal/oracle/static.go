// Package oracle provides PriceOracle implementations: a static fixture
// oracle for dev mode and tests, an HTTP price-feed client for real
// deployments, and a caching decorator that mirrors observations into the
// price cache for the read model.
package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/updownlabs/updown/internal/domain"
)

// Static is an in-memory oracle with settable per-feed prices and a flat
// lookup fee. Safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	fee    *big.Int
	prices map[string]domain.PriceData
}

// NewStatic creates a Static oracle charging the given flat lookup fee.
func NewStatic(fee *big.Int) *Static {
	if fee == nil {
		fee = new(big.Int)
	}
	return &Static{
		fee:    new(big.Int).Set(fee),
		prices: make(map[string]domain.PriceData),
	}
}

// SetPrice sets the feed's current price, stamping it with the current time.
func (s *Static) SetPrice(feedID string, value *big.Int, decimals uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[feedID] = domain.PriceData{
		Value:     new(big.Int).Set(value),
		Decimals:  decimals,
		Timestamp: time.Now().UTC(),
	}
}

// LookupFee returns the flat fee for known feeds.
func (s *Static) LookupFee(_ context.Context, feedID string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.prices[feedID]; !ok {
		return nil, domain.ErrUnknownFeed
	}
	return new(big.Int).Set(s.fee), nil
}

// LatestPrice returns the feed's last set price.
func (s *Static) LatestPrice(_ context.Context, feedID string) (domain.PriceData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[feedID]
	if !ok {
		return domain.PriceData{}, domain.ErrUnknownFeed
	}
	return domain.PriceData{
		Value:     new(big.Int).Set(p.Value),
		Decimals:  p.Decimals,
		Timestamp: p.Timestamp,
	}, nil
}

var _ domain.PriceOracle = (*Static)(nil)
