package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RoundStore persists resolved-round snapshots for history queries. The
// in-memory ledger is authoritative; this store is write-behind.
type RoundStore interface {
	Upsert(ctx context.Context, round Round) error
	GetByID(ctx context.Context, marketID string, roundID uint64) (Round, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Round, error)
}

// JournalEntry is a single row of the append-only event journal.
type JournalEntry struct {
	ID        int64
	EventID   string
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// JournalStore persists the append-only ledger event journal.
type JournalStore interface {
	Append(ctx context.Context, eventID, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]JournalEntry, error)
}
