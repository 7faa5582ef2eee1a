package domain

import (
	"context"
	"math/big"
	"time"
)

// PriceData is a single oracle price observation. Value is scaled by
// 10^Decimals.
type PriceData struct {
	Value     *big.Int  `json:"value"`
	Decimals  uint8     `json:"decimals"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceOracle is the external price feed collaborator. Lookups cost a fee
// that callers of initialize/resolve must attach; both methods return
// ErrUnknownFeed for feeds the oracle does not serve.
type PriceOracle interface {
	LookupFee(ctx context.Context, feedID string) (*big.Int, error)
	LatestPrice(ctx context.Context, feedID string) (PriceData, error)
}
