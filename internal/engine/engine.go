// Package engine implements the prediction-market ledger: market registry,
// round lifecycle state machine, position ledger, and settlement accounting.
// All mutating operations are serialized behind a single mutex and follow an
// all-or-nothing discipline: inputs and oracle responses are validated before
// the first write, and value transfers happen only after every ledger write
// for the operation has been committed.
package engine

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

const (
	// feeBps is the protocol fee in basis points over bpsDenom: 10% of the
	// losing pool on a contested round, and the same single factor applied
	// to the whole pool on a one-sided round.
	feeBps   = 1000
	bpsDenom = 10000

	// DefaultWindow is the round window D: entries close D after open and
	// resolution unlocks D after that.
	DefaultWindow = 5 * time.Minute
)

// marketState is everything the ledger owns for one market.
type marketState struct {
	market        domain.Market
	rounds        map[uint64]*domain.Round
	positions     map[common.Hash]*domain.Position
	accountRounds map[common.Address][]uint64
}

// Engine is the single-writer ledger. All exported methods are safe for
// concurrent use; mutations never interleave.
type Engine struct {
	oracle domain.PriceOracle
	bank   domain.Bank
	sink   domain.EventSink
	logger *slog.Logger

	now    func() time.Time
	window time.Duration

	mu        sync.Mutex
	markets   map[string]*marketState
	marketIDs []string
	treasury  *big.Int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source. Used by tests to drive the round
// lifecycle without sleeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWindow overrides the round window D.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithBank sets the payout destination for claims and resolver incentives.
func WithBank(b domain.Bank) Option {
	return func(e *Engine) { e.bank = b }
}

// WithSink sets the event sink. Events are emitted after state commit.
func WithSink(s domain.EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// New creates an Engine backed by the given oracle.
func New(oracle domain.PriceOracle, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		oracle:   oracle,
		bank:     NewMemBank(),
		sink:     noopSink{},
		logger:   logger.With(slog.String("component", "engine")),
		now:      time.Now,
		window:   DefaultWindow,
		markets:  make(map[string]*marketState),
		treasury: new(big.Int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bank returns the payout bank the engine credits.
func (e *Engine) Bank() domain.Bank {
	return e.bank
}

// SetSink replaces the event sink. The sink typically needs the engine as
// its round source, so wiring installs it after construction; call before
// serving traffic.
func (e *Engine) SetSink(s domain.EventSink) {
	if s != nil {
		e.sink = s
	}
}

// emit delivers events after the ledger lock has been released.
func (e *Engine) emit(ctx context.Context, events []domain.Event) {
	for _, ev := range events {
		e.sink.Emit(ctx, ev)
	}
}

// credit pays out through the bank. The ledger state is already final at
// this point, so a failing transfer is logged and surfaced nowhere else.
func (e *Engine) credit(ctx context.Context, account common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	if err := e.bank.Credit(ctx, account, amount); err != nil {
		e.logger.ErrorContext(ctx, "payout credit failed",
			slog.String("account", account.Hex()),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()),
		)
	}
}

type noopSink struct{}

func (noopSink) Emit(context.Context, domain.Event) {}
