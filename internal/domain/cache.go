package domain

import (
	"context"
)

// PriceCache stores the most recent oracle observation per feed for the
// read model. The ledger never reads from it; it exists so dashboards and
// the API can serve prices without paying oracle lookup fees.
type PriceCache interface {
	SetPrice(ctx context.Context, feedID string, price PriceData) error
	GetPrice(ctx context.Context, feedID string) (PriceData, error)
}

// SignalBus is ephemeral pub/sub used to fan ledger events out to
// websocket clients and other subscribers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
