package engine

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/updownlabs/updown/internal/domain"
)

func TestInitializeMarketBootstrapsRoundChain(t *testing.T) {
	h := newHarness(t)
	h.initMarket(t)

	mkt, err := h.engine.Market(testFeed)
	require.NoError(t, err)
	assert.Equal(t, testFeed, mkt.ID)
	assert.Equal(t, carol, mkt.Creator)
	assert.Equal(t, uint64(2), mkt.CurrentRoundID)

	// Round 1 is live at the initialization price.
	r1, err := h.engine.Round(testFeed, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusLive, r1.Status)
	assert.Equal(t, "50000", r1.PriceMark.String())
	assert.Equal(t, h.clock.Now().Add(DefaultWindow), r1.ClosingTime)

	// Round 2 is open for entries.
	r2, err := h.engine.Round(testFeed, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusOpen, r2.Status)
	assert.Nil(t, r2.PriceMark)
	assert.Equal(t, h.clock.Now().Add(DefaultWindow), r2.LockTime)

	assert.Equal(t, []string{"initialized_market", "new_round", "locked_price", "new_round"}, h.sink.names())
}

func TestInitializeMarketDuplicate(t *testing.T) {
	h := newHarness(t)
	h.initMarket(t)

	err := h.engine.InitializeMarket(context.Background(), testFeed, carol, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrMarketExists)
}

func TestInitializeMarketInsufficientFee(t *testing.T) {
	h := newHarness(t)

	err := h.engine.InitializeMarket(context.Background(), testFeed, carol, big.NewInt(9))
	assert.ErrorIs(t, err, domain.ErrInsufficientFee)

	err = h.engine.InitializeMarket(context.Background(), testFeed, carol, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientFee)

	// Nothing was registered.
	_, err = h.engine.Market(testFeed)
	assert.ErrorIs(t, err, domain.ErrMarketNotInitialized)
}

func TestInitializeMarketUnknownFeed(t *testing.T) {
	h := newHarness(t)

	err := h.engine.InitializeMarket(context.Background(), "DOGE-USD", carol, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrUnknownFeed)
}

func TestResolveChainsRounds(t *testing.T) {
	h := newHarness(t)
	h.initMarket(t)

	h.clock.Advance(DefaultWindow)
	h.oracle.SetPrice(testFeed, big.NewInt(51_000), 0)
	require.NoError(t, h.engine.Resolve(context.Background(), testFeed, 1, resolver, big.NewInt(10)))

	// Round 1 closed above its mark.
	r1, err := h.engine.Round(testFeed, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusResolved, r1.Status)
	assert.Equal(t, "51000", r1.ClosingPrice.String())
	assert.Equal(t, domain.SideUp, r1.WinningSide)

	// Round 2 went live with the same price as its strike.
	r2, err := h.engine.Round(testFeed, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusLive, r2.Status)
	assert.Equal(t, "51000", r2.PriceMark.String())
	assert.Equal(t, h.clock.Now().Add(DefaultWindow), r2.ClosingTime)

	// Round 3 opened for entries.
	r3, err := h.engine.OpenRound(testFeed)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r3.ID)
	assert.Equal(t, domain.RoundStatusOpen, r3.Status)
}

func TestResolveTooEarly(t *testing.T) {
	h := newHarness(t)
	h.initMarket(t)

	h.clock.Advance(DefaultWindow - time.Second)
	err := h.engine.Resolve(context.Background(), testFeed, 1, resolver, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrActionTooEarly)
}

func TestResolveWrongStatus(t *testing.T) {
	h := newHarness(t)
	h.initMarket(t)
	h.clock.Advance(DefaultWindow)

	// Round 2 is still open, round 9 does not exist.
	err := h.engine.Resolve(context.Background(), testFeed, 2, resolver, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrInvalidRoundStatus)
	err = h.engine.Resolve(context.Background(), testFeed, 9, resolver, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrInvalidRoundStatus)

	// A resolved round cannot be resolved again.
	require.NoError(t, h.engine.Resolve(context.Background(), testFeed, 1, resolver, big.NewInt(10)))
	err = h.engine.Resolve(context.Background(), testFeed, 1, resolver, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrInvalidRoundStatus)
}

func TestResolveInsufficientFee(t *testing.T) {
	h := newHarness(t)
	h.initMarket(t)
	h.clock.Advance(DefaultWindow)

	err := h.engine.Resolve(context.Background(), testFeed, 1, resolver, big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrInsufficientFee)

	// The round is untouched.
	r1, err := h.engine.Round(testFeed, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusLive, r1.Status)
}

func TestResolveEmptyRoundTakesNoFees(t *testing.T) {
	h := newHarness(t)
	h.initMarket(t)

	h.resolveAt(t, 1, 51_000)

	r1, err := h.engine.Round(testFeed, 1)
	require.NoError(t, err)
	assert.Zero(t, r1.RewardPool.Sign())
	assert.Zero(t, r1.WinningShares.Sign())
	assert.Zero(t, h.engine.TreasuryBalance().Sign())
	assert.Zero(t, h.bank.BalanceOf(resolver).Sign())
}

func TestResolveUnknownMarket(t *testing.T) {
	h := newHarness(t)

	err := h.engine.Resolve(context.Background(), "nope", 1, resolver, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrMarketNotInitialized)
}
