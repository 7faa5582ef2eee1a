package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a ledger notification. Events are emitted strictly after the
// state change they describe has been committed.
type Event interface {
	EventName() string
}

// EventSink receives ledger events. Implementations must not block the
// caller for long and must never return the event into the ledger path;
// delivery failures are the sink's problem.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// InitializedMarket is emitted once when a market is created and its first
// two rounds are bootstrapped.
type InitializedMarket struct {
	MarketID string         `json:"market_id"`
	Creator  common.Address `json:"creator"`
}

func (InitializedMarket) EventName() string { return "initialized_market" }

// NewRound is emitted when a round is opened for entries.
type NewRound struct {
	MarketID    string    `json:"market_id"`
	RoundID     uint64    `json:"round_id"`
	LockTime    time.Time `json:"lock_time"`
	ClosingTime time.Time `json:"closing_time"`
}

func (NewRound) EventName() string { return "new_round" }

// LockedPrice is emitted when a round's strike price is captured and the
// round goes live.
type LockedPrice struct {
	MarketID    string    `json:"market_id"`
	RoundID     uint64    `json:"round_id"`
	Price       *big.Int  `json:"price"`
	ClosingTime time.Time `json:"closing_time"`
}

func (LockedPrice) EventName() string { return "locked_price" }

// Predicted is emitted when a position is opened.
type Predicted struct {
	MarketID   string         `json:"market_id"`
	RoundID    uint64         `json:"round_id"`
	Account    common.Address `json:"account"`
	PositionID common.Hash    `json:"position_id"`
	Side       Side           `json:"side"`
	Amount     *big.Int       `json:"amount"`
}

func (Predicted) EventName() string { return "predicted" }

// RoundResolved is emitted when a round is finalized.
type RoundResolved struct {
	MarketID       string   `json:"market_id"`
	RoundID        uint64   `json:"round_id"`
	ClosePrice     *big.Int `json:"close_price"`
	RewardPool     *big.Int `json:"reward_pool"`
	WinningShares  *big.Int `json:"winning_shares"`
	WinningSide    Side     `json:"winning_side"`
	ResolverReward *big.Int `json:"resolver_reward"`
}

func (RoundResolved) EventName() string { return "round_resolved" }

// Claim is emitted per settled round when a batch claim pays out.
type Claim struct {
	MarketID   string         `json:"market_id"`
	RoundID    uint64         `json:"round_id"`
	Account    common.Address `json:"account"`
	PositionID common.Hash    `json:"position_id"`
	Amount     *big.Int       `json:"amount"`
}

func (Claim) EventName() string { return "claim" }
