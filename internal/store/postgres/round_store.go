package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/updownlabs/updown/internal/domain"
)

// RoundStore implements domain.RoundStore using PostgreSQL. Amounts are
// stored as NUMERIC and transported as decimal strings to preserve full
// big.Int precision.
type RoundStore struct {
	pool *pgxpool.Pool
}

// NewRoundStore creates a RoundStore backed by the given connection pool.
func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

const roundSelectCols = `market_id, round_id, lock_time, closing_time,
	price_mark::text, closing_price::text,
	total_shares::text, bull_shares::text, bear_shares::text,
	reward_pool::text, winning_shares::text,
	status, winning_side`

// Upsert writes a round snapshot, replacing any previous snapshot for the
// same (market, round) key.
func (s *RoundStore) Upsert(ctx context.Context, r domain.Round) error {
	const query = `
		INSERT INTO rounds (
			market_id, round_id, lock_time, closing_time,
			price_mark, closing_price,
			total_shares, bull_shares, bear_shares,
			reward_pool, winning_shares,
			status, winning_side, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9,
			$10, $11,
			$12, $13, NOW()
		)
		ON CONFLICT (market_id, round_id) DO UPDATE SET
			lock_time      = EXCLUDED.lock_time,
			closing_time   = EXCLUDED.closing_time,
			price_mark     = EXCLUDED.price_mark,
			closing_price  = EXCLUDED.closing_price,
			total_shares   = EXCLUDED.total_shares,
			bull_shares    = EXCLUDED.bull_shares,
			bear_shares    = EXCLUDED.bear_shares,
			reward_pool    = EXCLUDED.reward_pool,
			winning_shares = EXCLUDED.winning_shares,
			status         = EXCLUDED.status,
			winning_side   = EXCLUDED.winning_side,
			updated_at     = NOW()`

	_, err := s.pool.Exec(ctx, query,
		r.MarketID, int64(r.ID), r.LockTime, r.ClosingTime,
		bigToText(r.PriceMark), bigToText(r.ClosingPrice),
		bigToText(r.TotalShares), bigToText(r.BullShares), bigToText(r.BearShares),
		bigToText(r.RewardPool), bigToText(r.WinningShares),
		string(r.Status), int16(r.WinningSide),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert round %s/%d: %w", r.MarketID, r.ID, err)
	}
	return nil
}

// GetByID retrieves a single round snapshot.
func (s *RoundStore) GetByID(ctx context.Context, marketID string, roundID uint64) (domain.Round, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+roundSelectCols+` FROM rounds WHERE market_id = $1 AND round_id = $2`,
		marketID, int64(roundID))

	r, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("postgres: get round %s/%d: %w", marketID, roundID, err)
	}
	return r, nil
}

// ListByMarket returns round snapshots for a market, newest first.
func (s *RoundStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Round, error) {
	query := `SELECT ` + roundSelectCols + ` FROM rounds WHERE market_id = $1 ORDER BY round_id DESC`
	args := []any{marketID}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list rounds for %s: %w", marketID, err)
	}
	defer rows.Close()

	var out []domain.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan round: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRound(row pgx.Row) (domain.Round, error) {
	var (
		r          domain.Round
		roundID    int64
		status     string
		side       int16
		mark, cls  *string
		total      string
		bull, bear string
		pool, win  string
	)
	err := row.Scan(
		&r.MarketID, &roundID, &r.LockTime, &r.ClosingTime,
		&mark, &cls,
		&total, &bull, &bear,
		&pool, &win,
		&status, &side,
	)
	if err != nil {
		return domain.Round{}, err
	}

	r.ID = uint64(roundID)
	r.Status = domain.RoundStatus(status)
	r.WinningSide = domain.Side(side)
	if r.PriceMark, err = textToBig(mark); err != nil {
		return domain.Round{}, err
	}
	if r.ClosingPrice, err = textToBig(cls); err != nil {
		return domain.Round{}, err
	}
	if r.TotalShares, err = textToBig(&total); err != nil {
		return domain.Round{}, err
	}
	if r.BullShares, err = textToBig(&bull); err != nil {
		return domain.Round{}, err
	}
	if r.BearShares, err = textToBig(&bear); err != nil {
		return domain.Round{}, err
	}
	if r.RewardPool, err = textToBig(&pool); err != nil {
		return domain.Round{}, err
	}
	if r.WinningShares, err = textToBig(&win); err != nil {
		return domain.Round{}, err
	}
	return r, nil
}

func bigToText(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func textToBig(s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed numeric %q", *s)
	}
	return v, nil
}

var _ domain.RoundStore = (*RoundStore)(nil)
