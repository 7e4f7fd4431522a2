package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL. A market and
// its bets are saved together in one transaction so a reader never observes
// a pool total that disagrees with the bet list.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const upsertMarketSQL = `
	INSERT INTO markets (
		id, dapp_id, safety_metric, description, status, resolution,
		total_pool, safe_pool, unsafe_pool, posting_fee_contribution,
		recommended_age, created_at, expires_at, resolved_at,
		triggered_by, triggered_by_address, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10,
		$11, $12, $13, $14,
		$15, $16, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		status      = EXCLUDED.status,
		resolution  = EXCLUDED.resolution,
		total_pool  = EXCLUDED.total_pool,
		safe_pool   = EXCLUDED.safe_pool,
		unsafe_pool = EXCLUDED.unsafe_pool,
		resolved_at = EXCLUDED.resolved_at,
		updated_at  = NOW()`

const upsertBetSQL = `
	INSERT INTO bets (id, market_id, bettor, side, amount, shares, payout, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET payout = EXCLUDED.payout`

// Save persists the market aggregate with overwrite-on-id semantics. Bets
// are append-only rows; re-saving an existing bet only ever updates its
// payout (set once at resolution).
func (s *MarketStore) Save(ctx context.Context, m domain.Market) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save market %s: %w", m.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var resolution *string
	if m.Resolution != "" {
		r := string(m.Resolution)
		resolution = &r
	}
	var age *string
	if m.RecommendedAge != "" {
		a := string(m.RecommendedAge)
		age = &a
	}

	if _, err := tx.Exec(ctx, upsertMarketSQL,
		m.ID, m.DAppID, string(m.SafetyMetric), m.Description,
		string(m.Status), resolution,
		m.TotalPool, m.SafePool, m.UnsafePool, m.PostingFeeContribution,
		age, m.CreatedAt, m.ExpiresAt, m.ResolvedAt,
		string(m.TriggeredBy), m.TriggeredByAddress,
	); err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}

	batch := &pgx.Batch{}
	for _, b := range m.Bets {
		batch.Queue(upsertBetSQL,
			b.ID, b.MarketID, b.Bettor, string(b.Side),
			b.Amount, b.Shares, b.Payout, b.CreatedAt,
		)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for range m.Bets {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: upsert bets for market %s: %w", m.ID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close bet batch for market %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit save market %s: %w", m.ID, err)
	}
	return nil
}

const marketCols = `id, dapp_id, safety_metric, description, status, resolution,
	total_pool, safe_pool, unsafe_pool, posting_fee_contribution,
	recommended_age, created_at, expires_at, resolved_at,
	triggered_by, triggered_by_address`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status, metric, trigger string
	var resolution, age *string
	err := row.Scan(
		&m.ID, &m.DAppID, &metric, &m.Description, &status, &resolution,
		&m.TotalPool, &m.SafePool, &m.UnsafePool, &m.PostingFeeContribution,
		&age, &m.CreatedAt, &m.ExpiresAt, &m.ResolvedAt,
		&trigger, &m.TriggeredByAddress,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.SafetyMetric = domain.SafetyMetric(metric)
	m.Status = domain.MarketStatus(status)
	m.TriggeredBy = domain.TriggerSource(trigger)
	if resolution != nil {
		m.Resolution = domain.Resolution(*resolution)
	}
	if age != nil {
		m.RecommendedAge = domain.AgeRating(*age)
	}
	return m, nil
}

// GetByID retrieves a market and its bets in placement order.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}

	if err := s.loadBets(ctx, &m); err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

func (s *MarketStore) loadBets(ctx context.Context, m *domain.Market) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, market_id, bettor, side, amount, shares, payout, created_at
		 FROM bets WHERE market_id = $1 ORDER BY created_at, id`, m.ID)
	if err != nil {
		return fmt.Errorf("postgres: load bets for market %s: %w", m.ID, err)
	}
	defer rows.Close()

	m.Bets = []domain.Bet{}
	for rows.Next() {
		var b domain.Bet
		var side string
		if err := rows.Scan(&b.ID, &b.MarketID, &b.Bettor, &side,
			&b.Amount, &b.Shares, &b.Payout, &b.CreatedAt); err != nil {
			return fmt.Errorf("postgres: scan bet for market %s: %w", m.ID, err)
		}
		b.Side = domain.Side(side)
		m.Bets = append(m.Bets, b)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: bet rows for market %s: %w", m.ID, err)
	}
	return nil
}

// ListActiveByDApp returns open markets for the dApp with a future expiry.
func (s *MarketStore) ListActiveByDApp(ctx context.Context, dappID string, now time.Time) ([]domain.Market, error) {
	return s.list(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE dapp_id = $1 AND status = 'open' AND expires_at > $2
		 ORDER BY created_at DESC`, dappID, now)
}

// ListExpired returns open markets whose expiry has passed.
func (s *MarketStore) ListExpired(ctx context.Context, now time.Time) ([]domain.Market, error) {
	return s.list(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE status = 'open' AND expires_at <= $1
		 ORDER BY expires_at`, now)
}

// ListByDApp returns every market for the dApp regardless of status.
func (s *MarketStore) ListByDApp(ctx context.Context, dappID string) ([]domain.Market, error) {
	return s.list(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE dapp_id = $1 ORDER BY created_at DESC`, dappID)
}

// ListResolvedBefore returns resolved or cancelled markets that closed
// before the cutoff, oldest first, for archival.
func (s *MarketStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets
		 WHERE (status = 'resolved' AND resolved_at < $1)
		    OR (status = 'cancelled' AND created_at < $1)
		 ORDER BY created_at`
	args := []any{cutoff}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}
	return s.list(ctx, query, args...)
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

func (s *MarketStore) list(ctx context.Context, query string, args ...any) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}

	for i := range markets {
		if err := s.loadBets(ctx, &markets[i]); err != nil {
			return nil, err
		}
	}
	return markets, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
