package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/updownlabs/updown/internal/domain"
)

type memBus struct {
	published map[string][][]byte
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

type memJournal struct {
	entries []domain.JournalEntry
}

func (j *memJournal) Append(_ context.Context, eventID, event string, detail map[string]any) error {
	j.entries = append(j.entries, domain.JournalEntry{EventID: eventID, Event: event, Detail: detail})
	return nil
}

func (j *memJournal) List(context.Context, domain.ListOpts) ([]domain.JournalEntry, error) {
	return j.entries, nil
}

type memRoundStore struct {
	upserts []domain.Round
}

func (s *memRoundStore) Upsert(_ context.Context, r domain.Round) error {
	s.upserts = append(s.upserts, r)
	return nil
}

func (s *memRoundStore) GetByID(context.Context, string, uint64) (domain.Round, error) {
	return domain.Round{}, domain.ErrNotFound
}

func (s *memRoundStore) ListByMarket(context.Context, string, domain.ListOpts) ([]domain.Round, error) {
	return nil, nil
}

type memArchiver struct {
	archived []domain.Round
}

func (a *memArchiver) ArchiveRound(_ context.Context, r domain.Round) error {
	a.archived = append(a.archived, r)
	return nil
}

type memSource struct {
	rounds map[uint64]domain.Round
}

func (s *memSource) Round(_ string, roundID uint64) (domain.Round, error) {
	r, ok := s.rounds[roundID]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return r, nil
}

// newTestFan converts each fake to its interface only when present, so an
// absent destination is a true nil interface rather than a typed-nil
// pointer.
func newTestFan(bus *memBus, journal *memJournal, rounds *memRoundStore, archiver *memArchiver, source *memSource) *Fan {
	var (
		sb domain.SignalBus
		js domain.JournalStore
		rs domain.RoundStore
		ra RoundArchiver
	)
	if bus != nil {
		sb = bus
	}
	if journal != nil {
		js = journal
	}
	if rounds != nil {
		rs = rounds
	}
	if archiver != nil {
		ra = archiver
	}
	return New(sb, js, rs, ra, nil, source, slog.New(slog.DiscardHandler))
}

func TestEmitPublishesAndJournals(t *testing.T) {
	bus := &memBus{published: make(map[string][][]byte)}
	journal := &memJournal{}
	fan := newTestFan(bus, journal, nil, nil, &memSource{})

	acct := common.HexToAddress("0x1111111111111111111111111111111111111111")
	fan.Emit(context.Background(), domain.Predicted{
		MarketID: "BTC-USD",
		RoundID:  2,
		Account:  acct,
		Side:     domain.SideUp,
		Amount:   big.NewInt(400),
	})

	require.Len(t, bus.published[ChannelPositions], 1)
	var env struct {
		ID    string `json:"id"`
		Event string `json:"event"`
	}
	require.NoError(t, json.Unmarshal(bus.published[ChannelPositions][0], &env))
	assert.Equal(t, "predicted", env.Event)
	assert.NotEmpty(t, env.ID)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, "predicted", journal.entries[0].Event)
	assert.Equal(t, env.ID, journal.entries[0].EventID)
	assert.Equal(t, "BTC-USD", journal.entries[0].Detail["market_id"])
}

func TestEmitChannelRouting(t *testing.T) {
	bus := &memBus{published: make(map[string][][]byte)}
	fan := newTestFan(bus, nil, nil, nil, &memSource{})
	ctx := context.Background()

	fan.Emit(ctx, domain.InitializedMarket{MarketID: "BTC-USD"})
	fan.Emit(ctx, domain.Claim{MarketID: "BTC-USD", RoundID: 2, Amount: big.NewInt(1)})
	fan.Emit(ctx, domain.NewRound{MarketID: "BTC-USD", RoundID: 3})

	assert.Len(t, bus.published[ChannelMarkets], 1)
	assert.Len(t, bus.published[ChannelClaims], 1)
	assert.Len(t, bus.published[ChannelRounds], 1)
}

func TestEmitSnapshotsRounds(t *testing.T) {
	bus := &memBus{published: make(map[string][][]byte)}
	rounds := &memRoundStore{}
	archiver := &memArchiver{}
	source := &memSource{rounds: map[uint64]domain.Round{
		2: {ID: 2, MarketID: "BTC-USD", Status: domain.RoundStatusResolved},
		3: {ID: 3, MarketID: "BTC-USD", Status: domain.RoundStatusOpen},
	}}
	fan := newTestFan(bus, nil, rounds, archiver, source)
	ctx := context.Background()

	fan.Emit(ctx, domain.NewRound{MarketID: "BTC-USD", RoundID: 3})
	fan.Emit(ctx, domain.RoundResolved{
		MarketID:       "BTC-USD",
		RoundID:        2,
		ClosePrice:     big.NewInt(51_000),
		RewardPool:     big.NewInt(580),
		WinningShares:  big.NewInt(400),
		ResolverReward: big.NewInt(2),
	})

	// Both rounds snapshotted; only the resolved one archived.
	require.Len(t, rounds.upserts, 2)
	require.Len(t, archiver.archived, 1)
	assert.Equal(t, uint64(2), archiver.archived[0].ID)
}

func TestEmitSurvivesMissingDestinations(t *testing.T) {
	fan := New(nil, nil, nil, nil, nil, nil, slog.New(slog.DiscardHandler))

	// Nothing to assert beyond not panicking.
	fan.Emit(context.Background(), domain.NewRound{MarketID: "BTC-USD", RoundID: 1})
}
