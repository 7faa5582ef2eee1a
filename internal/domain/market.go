package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Market is one up/down prediction market, keyed by its oracle feed
// identifier. Rounds and positions hang off the market; CurrentRoundID is the
// monotonic round counter, incremented each time a round is opened.
type Market struct {
	ID             string         `json:"id"`
	OracleFeedID   string         `json:"oracle_feed_id"`
	CurrentRoundID uint64         `json:"current_round_id"`
	Creator        common.Address `json:"creator"`
	CreatedAt      time.Time      `json:"created_at"`
}
