package engine

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// Bearish opens a DOWN position on the round.
func (e *Engine) Bearish(ctx context.Context, marketID string, roundID uint64, account common.Address, stake *big.Int) error {
	return e.predict(ctx, marketID, roundID, account, stake, domain.SideDown)
}

// Bullish opens an UP position on the round.
func (e *Engine) Bullish(ctx context.Context, marketID string, roundID uint64, account common.Address, stake *big.Int) error {
	return e.predict(ctx, marketID, roundID, account, stake, domain.SideUp)
}

// predict records a stake on one side of a round. One position per account
// per round; the stake joins the round's share totals atomically with the
// position record.
func (e *Engine) predict(ctx context.Context, marketID string, roundID uint64, account common.Address, stake *big.Int, side domain.Side) error {
	e.mu.Lock()
	ms, ok := e.markets[marketID]
	if !ok {
		e.mu.Unlock()
		return domain.ErrMarketNotInitialized
	}
	// Position existence is encoded by a nonzero stake, so a round that was
	// never opened reads as lock time zero and rejects the entry.
	r := ms.rounds[roundID]
	if r == nil || e.now().After(r.LockTime) {
		e.mu.Unlock()
		return domain.ErrEntryClosed
	}
	if stake == nil || stake.Sign() <= 0 {
		e.mu.Unlock()
		return domain.ErrZeroAmount
	}
	key := domain.PositionKey(marketID, roundID, account)
	if ms.positions[key] != nil {
		e.mu.Unlock()
		return domain.ErrPositionExists
	}

	r.TotalShares.Add(r.TotalShares, stake)
	switch side {
	case domain.SideUp:
		r.BullShares.Add(r.BullShares, stake)
	default:
		r.BearShares.Add(r.BearShares, stake)
	}
	ms.positions[key] = &domain.Position{
		ID:       key,
		MarketID: marketID,
		RoundID:  roundID,
		Account:  account,
		Stake:    new(big.Int).Set(stake),
		Option:   side,
	}
	ms.accountRounds[account] = append(ms.accountRounds[account], roundID)
	e.mu.Unlock()

	e.logger.DebugContext(ctx, "position opened",
		slog.String("market", marketID),
		slog.Uint64("round", roundID),
		slog.String("account", account.Hex()),
		slog.String("side", side.String()),
		slog.String("stake", stake.String()),
	)
	e.emit(ctx, []domain.Event{domain.Predicted{
		MarketID:   marketID,
		RoundID:    roundID,
		Account:    account,
		PositionID: key,
		Side:       side,
		Amount:     new(big.Int).Set(stake),
	}})
	return nil
}
