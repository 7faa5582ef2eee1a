// Package events fans ledger events out to the signal bus, the postgres
// journal, the notifier, and the round archiver. Delivery happens strictly
// after the ledger has committed, so a failing destination is logged and
// dropped, never propagated back into the ledger.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/updownlabs/updown/internal/domain"
	"github.com/updownlabs/updown/internal/notify"
)

// Signal bus channels, one per event family.
const (
	ChannelMarkets   = "markets"
	ChannelRounds    = "rounds"
	ChannelPositions = "positions"
	ChannelClaims    = "claims"
)

// RoundSource provides round snapshots for archival; the ledger satisfies
// it.
type RoundSource interface {
	Round(marketID string, roundID uint64) (domain.Round, error)
}

// RoundArchiver persists resolved-round snapshots to object storage.
type RoundArchiver interface {
	ArchiveRound(ctx context.Context, r domain.Round) error
}

// envelope is the JSON frame published on the signal bus.
type envelope struct {
	ID      string       `json:"id"`
	Event   string       `json:"event"`
	Payload domain.Event `json:"payload"`
}

// Fan implements domain.EventSink. Every destination is optional; nil
// destinations are skipped.
type Fan struct {
	bus      domain.SignalBus
	journal  domain.JournalStore
	rounds   domain.RoundStore
	archiver RoundArchiver
	notifier *notify.Notifier
	source   RoundSource
	logger   *slog.Logger
}

// New creates a Fan. source is required when rounds or archiver is set.
func New(
	bus domain.SignalBus,
	journal domain.JournalStore,
	rounds domain.RoundStore,
	archiver RoundArchiver,
	notifier *notify.Notifier,
	source RoundSource,
	logger *slog.Logger,
) *Fan {
	return &Fan{
		bus:      bus,
		journal:  journal,
		rounds:   rounds,
		archiver: archiver,
		notifier: notifier,
		source:   source,
		logger:   logger.With(slog.String("component", "events")),
	}
}

// Emit dispatches one ledger event to every configured destination.
func (f *Fan) Emit(ctx context.Context, ev domain.Event) {
	id := uuid.NewString()
	name := ev.EventName()

	f.publish(ctx, id, name, ev)
	f.append(ctx, id, name, ev)

	switch e := ev.(type) {
	case domain.InitializedMarket:
		f.notify(ctx, name, "Market initialized",
			fmt.Sprintf("market %s created by %s", e.MarketID, e.Creator.Hex()))
	case domain.RoundResolved:
		f.notify(ctx, name, "Round resolved",
			fmt.Sprintf("market %s round %d closed at %s, %s wins, pool %s",
				e.MarketID, e.RoundID, e.ClosePrice, e.WinningSide, e.RewardPool))
		f.snapshotRound(ctx, e.MarketID, e.RoundID)
	case domain.NewRound:
		f.snapshotRound(ctx, e.MarketID, e.RoundID)
	case domain.LockedPrice:
		f.snapshotRound(ctx, e.MarketID, e.RoundID)
	}
}

func (f *Fan) publish(ctx context.Context, id, name string, ev domain.Event) {
	if f.bus == nil {
		return
	}
	data, err := json.Marshal(envelope{ID: id, Event: name, Payload: ev})
	if err != nil {
		f.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := f.bus.Publish(ctx, channelFor(ev), data); err != nil {
		f.logger.WarnContext(ctx, "publish event failed",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
	}
}

func (f *Fan) append(ctx context.Context, id, name string, ev domain.Event) {
	if f.journal == nil {
		return
	}
	detail, err := toDetail(ev)
	if err != nil {
		f.logger.ErrorContext(ctx, "encode journal detail failed",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := f.journal.Append(ctx, id, name, detail); err != nil {
		f.logger.WarnContext(ctx, "journal append failed",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
	}
}

func (f *Fan) notify(ctx context.Context, event, title, message string) {
	if f.notifier == nil {
		return
	}
	if err := f.notifier.Notify(ctx, event, title, message); err != nil {
		f.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// snapshotRound persists the round's current state to the round store and,
// for resolved rounds, to the archive.
func (f *Fan) snapshotRound(ctx context.Context, marketID string, roundID uint64) {
	if f.source == nil || (f.rounds == nil && f.archiver == nil) {
		return
	}
	r, err := f.source.Round(marketID, roundID)
	if err != nil {
		f.logger.WarnContext(ctx, "round snapshot lookup failed",
			slog.String("market", marketID),
			slog.Uint64("round", roundID),
			slog.String("error", err.Error()),
		)
		return
	}

	if f.rounds != nil {
		if err := f.rounds.Upsert(ctx, r); err != nil {
			f.logger.WarnContext(ctx, "round snapshot upsert failed",
				slog.String("market", marketID),
				slog.Uint64("round", roundID),
				slog.String("error", err.Error()),
			)
		}
	}
	if f.archiver != nil && r.Status == domain.RoundStatusResolved {
		if err := f.archiver.ArchiveRound(ctx, r); err != nil {
			f.logger.WarnContext(ctx, "round archive failed",
				slog.String("market", marketID),
				slog.Uint64("round", roundID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// channelFor routes an event to its signal bus channel.
func channelFor(ev domain.Event) string {
	switch ev.(type) {
	case domain.InitializedMarket:
		return ChannelMarkets
	case domain.Predicted:
		return ChannelPositions
	case domain.Claim:
		return ChannelClaims
	default:
		return ChannelRounds
	}
}

// toDetail flattens an event into the journal's map form via JSON.
func toDetail(ev domain.Event) (map[string]any, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ domain.EventSink = (*Fan)(nil)
