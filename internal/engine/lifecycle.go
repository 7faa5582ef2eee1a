package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// InitializeMarket registers a market for feedID and bootstraps its round
// chain: round 1 is opened and immediately locked at the current oracle
// price, round 2 is opened for entries. attachedFee must cover the oracle's
// lookup fee.
func (e *Engine) InitializeMarket(ctx context.Context, feedID string, creator common.Address, attachedFee *big.Int) error {
	e.mu.Lock()
	_, exists := e.markets[feedID]
	e.mu.Unlock()
	if exists {
		return domain.ErrMarketExists
	}

	fee, err := e.oracle.LookupFee(ctx, feedID)
	if err != nil {
		return fmt.Errorf("engine: lookup fee for %q: %w", feedID, err)
	}
	if attachedFee == nil || attachedFee.Cmp(fee) < 0 {
		return domain.ErrInsufficientFee
	}
	price, err := e.oracle.LatestPrice(ctx, feedID)
	if err != nil {
		return fmt.Errorf("engine: fetch price for %q: %w", feedID, err)
	}

	e.mu.Lock()
	// Re-check: another caller may have initialized while the oracle
	// round-trip was in flight.
	if _, exists := e.markets[feedID]; exists {
		e.mu.Unlock()
		return domain.ErrMarketExists
	}

	now := e.now()
	ms := &marketState{
		market: domain.Market{
			ID:           feedID,
			OracleFeedID: feedID,
			Creator:      creator,
			CreatedAt:    now,
		},
		rounds:        make(map[uint64]*domain.Round),
		positions:     make(map[common.Hash]*domain.Position),
		accountRounds: make(map[common.Address][]uint64),
	}
	e.markets[feedID] = ms
	e.marketIDs = append(e.marketIDs, feedID)

	var events []domain.Event
	events = append(events, domain.InitializedMarket{MarketID: feedID, Creator: creator})

	first, ev := e.openRound(ms, now)
	events = append(events, ev)
	events = append(events, e.lockRound(first, price.Value, now))
	_, ev = e.openRound(ms, now)
	events = append(events, ev)
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "market initialized",
		slog.String("market", feedID),
		slog.String("creator", creator.Hex()),
		slog.String("mark_price", price.Value.String()),
	)
	e.emit(ctx, events)
	return nil
}

// openRound allocates the next round id and opens it for entries. Must be
// called with the ledger lock held.
func (e *Engine) openRound(ms *marketState, now time.Time) (*domain.Round, domain.Event) {
	ms.market.CurrentRoundID++
	r := &domain.Round{
		ID:            ms.market.CurrentRoundID,
		MarketID:      ms.market.ID,
		LockTime:      now.Add(e.window),
		ClosingTime:   now.Add(2 * e.window),
		TotalShares:   new(big.Int),
		BullShares:    new(big.Int),
		BearShares:    new(big.Int),
		RewardPool:    new(big.Int),
		WinningShares: new(big.Int),
		Status:        domain.RoundStatusOpen,
		WinningSide:   domain.SideNone,
	}
	ms.rounds[r.ID] = r
	return r, domain.NewRound{
		MarketID:    r.MarketID,
		RoundID:     r.ID,
		LockTime:    r.LockTime,
		ClosingTime: r.ClosingTime,
	}
}

// lockRound captures the strike price and moves the round to LIVE,
// restarting its closing window. Must be called with the ledger lock held;
// the round must be OPEN, which the chaining discipline guarantees.
func (e *Engine) lockRound(r *domain.Round, price *big.Int, now time.Time) domain.Event {
	r.PriceMark = new(big.Int).Set(price)
	// Entries close the moment the strike is captured, even when the lock
	// ran ahead of the scheduled lock time (round 1 at bootstrap).
	r.LockTime = now
	r.ClosingTime = now.Add(e.window)
	r.Status = domain.RoundStatusLive
	return domain.LockedPrice{
		MarketID:    r.MarketID,
		RoundID:     r.ID,
		Price:       new(big.Int).Set(price),
		ClosingTime: r.ClosingTime,
	}
}

// Resolve finalizes a live round past its closing time and chains the
// lifecycle: the fetched price both closes round roundID and becomes the
// strike of round roundID+1, and round roundID+2 is opened, so the market
// keeps exactly one live and one open round without any scheduler. The
// caller is paid the resolver incentive for performing the maintenance
// call.
func (e *Engine) Resolve(ctx context.Context, marketID string, roundID uint64, caller common.Address, attachedFee *big.Int) error {
	e.mu.Lock()
	ms, ok := e.markets[marketID]
	if !ok {
		e.mu.Unlock()
		return domain.ErrMarketNotInitialized
	}
	r := ms.rounds[roundID]
	if r == nil || r.Status != domain.RoundStatusLive {
		e.mu.Unlock()
		return domain.ErrInvalidRoundStatus
	}
	if e.now().Before(r.ClosingTime) {
		e.mu.Unlock()
		return domain.ErrActionTooEarly
	}
	feedID := ms.market.OracleFeedID
	e.mu.Unlock()

	fee, err := e.oracle.LookupFee(ctx, feedID)
	if err != nil {
		return fmt.Errorf("engine: lookup fee for %q: %w", feedID, err)
	}
	if attachedFee == nil || attachedFee.Cmp(fee) < 0 {
		return domain.ErrInsufficientFee
	}
	price, err := e.oracle.LatestPrice(ctx, feedID)
	if err != nil {
		return fmt.Errorf("engine: fetch price for %q: %w", feedID, err)
	}

	e.mu.Lock()
	// Re-validate: a concurrent resolver may have won the race during the
	// oracle round-trip.
	if r.Status != domain.RoundStatusLive {
		e.mu.Unlock()
		return domain.ErrInvalidRoundStatus
	}
	now := e.now()
	if now.Before(r.ClosingTime) {
		e.mu.Unlock()
		return domain.ErrActionTooEarly
	}

	var events []domain.Event

	next := ms.rounds[roundID+1]
	if next == nil || next.Status != domain.RoundStatusOpen {
		e.mu.Unlock()
		return domain.ErrInvalidRoundStatus
	}
	events = append(events, e.lockRound(next, price.Value, now))
	_, ev := e.openRound(ms, now)
	events = append(events, ev)

	resolverFee := e.finalizeRound(r, price.Value)
	winningSide := r.WinningSide
	events = append(events, domain.RoundResolved{
		MarketID:       r.MarketID,
		RoundID:        r.ID,
		ClosePrice:     new(big.Int).Set(r.ClosingPrice),
		RewardPool:     new(big.Int).Set(r.RewardPool),
		WinningShares:  new(big.Int).Set(r.WinningShares),
		WinningSide:    winningSide,
		ResolverReward: new(big.Int).Set(resolverFee),
	})
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "round resolved",
		slog.String("market", marketID),
		slog.Uint64("round", roundID),
		slog.String("close_price", price.Value.String()),
		slog.String("winning_side", winningSide.String()),
		slog.String("resolver_reward", resolverFee.String()),
	)
	e.credit(ctx, caller, resolverFee)
	e.emit(ctx, events)
	return nil
}
