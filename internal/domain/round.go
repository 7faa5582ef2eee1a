package domain

import (
	"math/big"
	"time"
)

// RoundStatus is the lifecycle state of a round.
type RoundStatus string

const (
	RoundStatusNotOpen   RoundStatus = "not_open"
	RoundStatusOpen      RoundStatus = "open"
	RoundStatusLive      RoundStatus = "live"
	RoundStatusResolved  RoundStatus = "resolved"
	RoundStatusRefunding RoundStatus = "refunding"
)

// Side is the direction a participant stakes on, or the winning direction of
// a resolved round. SideNone means no winner was assigned (equal mark and
// closing price).
type Side uint8

const (
	SideNone Side = iota
	SideDown
	SideUp
)

// String returns the human-readable side name.
func (s Side) String() string {
	switch s {
	case SideDown:
		return "down"
	case SideUp:
		return "up"
	default:
		return "none"
	}
}

// Round is one discrete betting window. Shares are 1:1 with staked value.
// Invariant: TotalShares == BullShares + BearShares at all times after
// creation.
type Round struct {
	ID       uint64 `json:"id"`
	MarketID string `json:"market_id"`

	// LockTime is the deadline for new positions; ClosingTime is the earliest
	// moment the round may be resolved.
	LockTime    time.Time `json:"lock_time"`
	ClosingTime time.Time `json:"closing_time"`

	// PriceMark is the strike captured when the round went live.
	PriceMark    *big.Int `json:"price_mark,omitempty"`
	ClosingPrice *big.Int `json:"closing_price,omitempty"`

	TotalShares *big.Int `json:"total_shares"`
	BullShares  *big.Int `json:"bull_shares"`
	BearShares  *big.Int `json:"bear_shares"`

	RewardPool    *big.Int `json:"reward_pool"`
	WinningShares *big.Int `json:"winning_shares"`

	Status      RoundStatus `json:"status"`
	WinningSide Side        `json:"winning_side"`
}
