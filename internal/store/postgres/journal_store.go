package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/updownlabs/updown/internal/domain"
)

// JournalStore implements domain.JournalStore using PostgreSQL. The journal
// is append-only; duplicate event ids are ignored so redelivery is
// harmless.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// Append writes a journal entry. The detail map is stored as JSONB.
func (s *JournalStore) Append(ctx context.Context, eventID, event string, detail map[string]any) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal journal detail: %w", err)
	}

	const query = `
		INSERT INTO journal (event_id, event, detail) VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, eventID, event, detailJSON); err != nil {
		return fmt.Errorf("postgres: append journal event %s: %w", event, err)
	}
	return nil
}

// List returns journal entries, newest first, with pagination and optional
// time filtering.
func (s *JournalStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	query := `SELECT id, event_id, event, detail, created_at FROM journal WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var detailJSON []byte

		if err := rows.Scan(&e.ID, &e.EventID, &e.Event, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan journal entry: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal journal detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list journal entries rows: %w", err)
	}
	return entries, nil
}

var _ domain.JournalStore = (*JournalStore)(nil)
