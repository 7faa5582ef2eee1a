package engine

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// finalizeRound closes the round at closePrice and applies the fee policy.
// It returns the resolver incentive; the protocol's cut accrues to the
// treasury. Must be called with the ledger lock held on a LIVE round.
//
// Contested round (both sides staked): the protocol takes feeBps of the
// losing pool, the resolver takes feeBps of that fee, and winners share
// totalShares minus the protocol fee. One-sided round: the whole pool goes
// to the protocol except a single feeBps cut of totalShares paid to the
// resolver. An equal mark and closing price assigns no winner; the pool
// stays in the round with zero winning shares and is unclaimable.
func (e *Engine) finalizeRound(r *domain.Round, closePrice *big.Int) *big.Int {
	r.ClosingPrice = new(big.Int).Set(closePrice)
	r.Status = domain.RoundStatusResolved

	rewardBase := new(big.Int)
	switch r.ClosingPrice.Cmp(r.PriceMark) {
	case 1:
		r.WinningSide = domain.SideUp
		r.WinningShares = new(big.Int).Set(r.BullShares)
		rewardBase.Set(r.BearShares)
	case -1:
		r.WinningSide = domain.SideDown
		r.WinningShares = new(big.Int).Set(r.BearShares)
		rewardBase.Set(r.BullShares)
	default:
		r.WinningSide = domain.SideNone
		r.WinningShares = new(big.Int)
	}

	resolverFee := new(big.Int)
	if r.TotalShares.Sign() == 0 {
		r.RewardPool = new(big.Int)
		return resolverFee
	}

	if r.BullShares.Sign() == 0 || r.BearShares.Sign() == 0 {
		// House win: no opposing stake, the pool goes to the protocol less
		// the resolver cut.
		resolverFee.Mul(r.TotalShares, big.NewInt(feeBps))
		resolverFee.Div(resolverFee, big.NewInt(bpsDenom))
		e.treasury.Add(e.treasury, new(big.Int).Sub(r.TotalShares, resolverFee))
		r.RewardPool = new(big.Int)
		return resolverFee
	}

	protocolFee := new(big.Int).Mul(rewardBase, big.NewInt(feeBps))
	protocolFee.Div(protocolFee, big.NewInt(bpsDenom))
	resolverFee.Mul(protocolFee, big.NewInt(feeBps))
	resolverFee.Div(resolverFee, big.NewInt(bpsDenom))

	r.RewardPool = new(big.Int).Sub(r.TotalShares, protocolFee)
	e.treasury.Add(e.treasury, new(big.Int).Sub(protocolFee, resolverFee))
	return resolverFee
}

// Settle claims rewards for the account across the given round ids,
// all-or-nothing: every entry is validated and priced before any position is
// marked settled, and the summed payout is transferred once, strictly after
// the settled flags are committed. It returns the total amount paid.
func (e *Engine) Settle(ctx context.Context, marketID string, account common.Address, roundIDs []uint64) (*big.Int, error) {
	e.mu.Lock()
	ms, ok := e.markets[marketID]
	if !ok {
		e.mu.Unlock()
		return nil, domain.ErrMarketNotInitialized
	}

	type entry struct {
		pos    *domain.Position
		reward *big.Int
	}
	entries := make([]entry, 0, len(roundIDs))
	seen := make(map[uint64]bool, len(roundIDs))

	for _, roundID := range roundIDs {
		pos := ms.positions[domain.PositionKey(marketID, roundID, account)]
		if pos == nil || pos.Stake.Sign() == 0 {
			e.mu.Unlock()
			return nil, domain.ErrPositionNotFound
		}
		if pos.Settled || seen[roundID] {
			e.mu.Unlock()
			return nil, domain.ErrClaimed
		}
		seen[roundID] = true

		r := ms.rounds[roundID]
		reward, err := claimableReward(r, pos)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		entries = append(entries, entry{pos: pos, reward: reward})
	}

	// Commit: flip the settled flags before any value moves.
	total := new(big.Int)
	events := make([]domain.Event, 0, len(entries))
	for _, ent := range entries {
		ent.pos.Settled = true
		total.Add(total, ent.reward)
		events = append(events, domain.Claim{
			MarketID:   marketID,
			RoundID:    ent.pos.RoundID,
			Account:    account,
			PositionID: ent.pos.ID,
			Amount:     ent.reward,
		})
	}
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "positions settled",
		slog.String("market", marketID),
		slog.String("account", account.Hex()),
		slog.Int("rounds", len(entries)),
		slog.String("payout", total.String()),
	)
	e.credit(ctx, account, total)
	e.emit(ctx, events)
	return total, nil
}

// claimableReward prices a single position against its round. A resolved
// round pays the winning side pro-rata from the reward pool; a refunding
// round returns the stake in full; everything else is a hard ErrNoReward.
func claimableReward(r *domain.Round, pos *domain.Position) (*big.Int, error) {
	if r == nil {
		return nil, domain.ErrNoReward
	}
	switch r.Status {
	case domain.RoundStatusResolved:
		if pos.Option != r.WinningSide || r.WinningShares.Sign() == 0 {
			return nil, domain.ErrNoReward
		}
		// One-sided rounds keep the pool for the house, so even the
		// "winning" staker has nothing to claim.
		if r.RewardPool.Sign() == 0 {
			return nil, domain.ErrNoReward
		}
		reward := new(big.Int).Mul(pos.Stake, r.RewardPool)
		return reward.Div(reward, r.WinningShares), nil
	case domain.RoundStatusRefunding:
		return new(big.Int).Set(pos.Stake), nil
	default:
		return nil, domain.ErrNoReward
	}
}

// TreasuryBalance returns the protocol fees accrued so far.
func (e *Engine) TreasuryBalance() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.treasury)
}
