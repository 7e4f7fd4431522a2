package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// FlagStore implements domain.FlagStore using PostgreSQL.
type FlagStore struct {
	pool *pgxpool.Pool
}

// NewFlagStore creates a FlagStore backed by the given connection pool.
func NewFlagStore(pool *pgxpool.Pool) *FlagStore {
	return &FlagStore{pool: pool}
}

// Save inserts a safety flag. Flags are immutable; a duplicate id is a
// caller bug surfaced as a constraint error.
func (s *FlagStore) Save(ctx context.Context, f domain.SafetyFlag) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO safety_flags (id, dapp_id, metric, description, flagged_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.DAppID, string(f.Metric), f.Description, f.FlaggedBy, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save flag %s: %w", f.ID, err)
	}
	return nil
}

// ListByDApp returns all flags filed against the dApp, newest first.
func (s *FlagStore) ListByDApp(ctx context.Context, dappID string) ([]domain.SafetyFlag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, dapp_id, metric, description, flagged_by, created_at
		 FROM safety_flags WHERE dapp_id = $1 ORDER BY created_at DESC`, dappID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list flags for %s: %w", dappID, err)
	}
	defer rows.Close()

	var flags []domain.SafetyFlag
	for rows.Next() {
		var f domain.SafetyFlag
		var metric string
		if err := rows.Scan(&f.ID, &f.DAppID, &metric, &f.Description, &f.FlaggedBy, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan flag: %w", err)
		}
		f.Metric = domain.SafetyMetric(metric)
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list flags rows: %w", err)
	}
	return flags, nil
}

// Compile-time interface check.
var _ domain.FlagStore = (*FlagStore)(nil)
