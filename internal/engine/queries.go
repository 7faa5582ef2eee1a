package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// DefaultHistoryLimit is how many recent participated rounds the history
// query returns when the caller does not ask for a specific count.
const DefaultHistoryLimit = 5

// MarketIDs returns all registered market identifiers in insertion order.
func (e *Engine) MarketIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.marketIDs))
	copy(out, e.marketIDs)
	return out
}

// Market returns a snapshot of the market record.
func (e *Engine) Market(marketID string) (domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.markets[marketID]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotInitialized
	}
	return ms.market, nil
}

// Round returns a snapshot of one round.
func (e *Engine) Round(marketID string, roundID uint64) (domain.Round, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.markets[marketID]
	if !ok {
		return domain.Round{}, domain.ErrMarketNotInitialized
	}
	r := ms.rounds[roundID]
	if r == nil {
		return domain.Round{}, domain.ErrNotFound
	}
	return cloneRound(r), nil
}

// OpenRound returns the round currently accepting entries, which by the
// chaining discipline is always the highest-numbered round.
func (e *Engine) OpenRound(marketID string) (domain.Round, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.markets[marketID]
	if !ok {
		return domain.Round{}, domain.ErrMarketNotInitialized
	}
	r := ms.rounds[ms.market.CurrentRoundID]
	if r == nil {
		return domain.Round{}, domain.ErrNotFound
	}
	return cloneRound(r), nil
}

// Position returns a snapshot of the account's position in the round.
func (e *Engine) Position(marketID string, roundID uint64, account common.Address) (domain.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.markets[marketID]
	if !ok {
		return domain.Position{}, domain.ErrMarketNotInitialized
	}
	pos := ms.positions[domain.PositionKey(marketID, roundID, account)]
	if pos == nil || pos.Stake.Sign() == 0 {
		return domain.Position{}, domain.ErrPositionNotFound
	}
	return clonePosition(pos), nil
}

// RoundIDsOf returns every round id the account has participated in, in
// participation order.
func (e *Engine) RoundIDsOf(marketID string, account common.Address) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.markets[marketID]
	if !ok {
		return nil, domain.ErrMarketNotInitialized
	}
	ids := ms.accountRounds[account]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

// LatestRoundsWithPosition returns the account's n most recent participated
// rounds, newest first, each paired with its position. n defaults to
// DefaultHistoryLimit and is clamped to the number of rounds the account has
// actually entered.
func (e *Engine) LatestRoundsWithPosition(marketID string, account common.Address, n int) ([]domain.RoundPosition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.markets[marketID]
	if !ok {
		return nil, domain.ErrMarketNotInitialized
	}
	ids := ms.accountRounds[account]
	if n <= 0 {
		n = DefaultHistoryLimit
	}
	if n > len(ids) {
		n = len(ids)
	}

	out := make([]domain.RoundPosition, 0, n)
	for i := len(ids) - 1; i >= len(ids)-n; i-- {
		roundID := ids[i]
		r := ms.rounds[roundID]
		pos := ms.positions[domain.PositionKey(marketID, roundID, account)]
		if r == nil || pos == nil {
			continue
		}
		out = append(out, domain.RoundPosition{
			Round:    cloneRound(r),
			Position: clonePosition(pos),
		})
	}
	return out, nil
}

func cloneRound(r *domain.Round) domain.Round {
	out := *r
	out.PriceMark = cloneBig(r.PriceMark)
	out.ClosingPrice = cloneBig(r.ClosingPrice)
	out.TotalShares = cloneBig(r.TotalShares)
	out.BullShares = cloneBig(r.BullShares)
	out.BearShares = cloneBig(r.BearShares)
	out.RewardPool = cloneBig(r.RewardPool)
	out.WinningShares = cloneBig(r.WinningShares)
	return out
}

func clonePosition(p *domain.Position) domain.Position {
	out := *p
	out.Stake = cloneBig(p.Stake)
	return out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
