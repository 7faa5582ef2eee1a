package redis

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/updownlabs/updown/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each feed's
// latest observation lives at "price:{feedID}" with fields "value",
// "decimals", and "ts" (Unix nanoseconds).
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. A zero ttl
// keeps entries until overwritten.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.rdb, ttl: ttl}
}

func priceKey(feedID string) string {
	return "price:" + feedID
}

// SetPrice stores the feed's latest observation.
func (pc *PriceCache) SetPrice(ctx context.Context, feedID string, price domain.PriceData) error {
	key := priceKey(feedID)
	fields := map[string]interface{}{
		"value":    price.Value.String(),
		"decimals": strconv.Itoa(int(price.Decimals)),
		"ts":       strconv.FormatInt(price.Timestamp.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", feedID, err)
	}
	if pc.ttl > 0 {
		if err := pc.rdb.Expire(ctx, key, pc.ttl).Err(); err != nil {
			return fmt.Errorf("redis: expire price %s: %w", feedID, err)
		}
	}
	return nil
}

// GetPrice retrieves the feed's latest observation. It returns
// domain.ErrNotFound when no observation has been cached.
func (pc *PriceCache) GetPrice(ctx context.Context, feedID string) (domain.PriceData, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(feedID)).Result()
	if err != nil {
		return domain.PriceData{}, fmt.Errorf("redis: get price %s: %w", feedID, err)
	}
	if len(vals) == 0 {
		return domain.PriceData{}, domain.ErrNotFound
	}

	value, ok := new(big.Int).SetString(vals["value"], 10)
	if !ok {
		return domain.PriceData{}, fmt.Errorf("redis: malformed price value %q for %s", vals["value"], feedID)
	}
	decimals, err := strconv.Atoi(vals["decimals"])
	if err != nil {
		return domain.PriceData{}, fmt.Errorf("redis: parse decimals for %s: %w", feedID, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.PriceData{}, fmt.Errorf("redis: parse ts for %s: %w", feedID, err)
	}

	return domain.PriceData{
		Value:     value,
		Decimals:  uint8(decimals),
		Timestamp: time.Unix(0, tsNano),
	}, nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
