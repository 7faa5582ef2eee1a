package engine

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// MemBank is an in-process payout ledger. Credits accumulate per account;
// balances are queryable for the API and for conservation checks.
type MemBank struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

// NewMemBank creates an empty MemBank.
func NewMemBank() *MemBank {
	return &MemBank{balances: make(map[common.Address]*big.Int)}
}

// Credit adds amount to the account's balance.
func (b *MemBank) Credit(_ context.Context, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal, ok := b.balances[account]
	if !ok {
		bal = new(big.Int)
		b.balances[account] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// BalanceOf returns the account's accumulated payouts.
func (b *MemBank) BalanceOf(account common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

var _ domain.Bank = (*MemBank)(nil)
