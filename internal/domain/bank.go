package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Bank is the value-transfer boundary for payouts (claim rewards, resolver
// incentives). The ledger only calls Credit after all of its own state for
// the triggering operation has been committed, so a failing transfer can
// never unwind or replay ledger state.
type Bank interface {
	Credit(ctx context.Context, account common.Address, amount *big.Int) error
}
