package engine

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
	"github.com/updownlabs/updown/internal/oracle"
)

var (
	alice    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	resolver = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

const testFeed = "BTC-USD"

// testClock is a settable time source shared between the test and the
// engine.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// captureSink records every emitted event in order.
type captureSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *captureSink) Emit(_ context.Context, ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *captureSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.EventName()
	}
	return out
}

// testHarness bundles an engine with its collaborators.
type testHarness struct {
	engine *Engine
	oracle *oracle.Static
	bank   *MemBank
	clock  *testClock
	sink   *captureSink
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	clock := newTestClock()
	orc := oracle.NewStatic(big.NewInt(10))
	orc.SetPrice(testFeed, big.NewInt(50_000), 0)
	bank := NewMemBank()
	sink := &captureSink{}
	eng := New(orc, slog.New(slog.DiscardHandler),
		WithClock(clock.Now),
		WithBank(bank),
		WithSink(sink),
	)
	return &testHarness{engine: eng, oracle: orc, bank: bank, clock: clock, sink: sink}
}

// initMarket initializes the test market: round 1 is live at the current
// oracle price, round 2 is open for entries.
func (h *testHarness) initMarket(t *testing.T) {
	t.Helper()
	if err := h.engine.InitializeMarket(context.Background(), testFeed, carol, big.NewInt(10)); err != nil {
		t.Fatalf("initialize market: %v", err)
	}
}

// resolveAt sets the oracle price, advances the clock to the round's closing
// time, and resolves the round.
func (h *testHarness) resolveAt(t *testing.T, roundID uint64, price int64) {
	t.Helper()
	r, err := h.engine.Round(testFeed, roundID)
	if err != nil {
		t.Fatalf("round %d: %v", roundID, err)
	}
	if now := h.clock.Now(); now.Before(r.ClosingTime) {
		h.clock.Advance(r.ClosingTime.Sub(now))
	}
	h.oracle.SetPrice(testFeed, big.NewInt(price), 0)
	if err := h.engine.Resolve(context.Background(), testFeed, roundID, resolver, big.NewInt(10)); err != nil {
		t.Fatalf("resolve round %d: %v", roundID, err)
	}
}
