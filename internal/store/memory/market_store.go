// Package memory implements the domain store and lock interfaces with
// process-local state. It backs single-node deployments that run without
// PostgreSQL and is the test double for the postgres stores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// MarketStore is a mutex-guarded, in-process market ledger. Values are
// deep-copied on the way in and out so callers can never alias stored state.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[string]domain.Market)}
}

// Save inserts or overwrites the market under its id.
func (s *MarketStore) Save(_ context.Context, market domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[market.ID] = market.Clone()
	return nil
}

// GetByID returns a copy of the market or domain.ErrNotFound.
func (s *MarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m.Clone(), nil
}

// ListActiveByDApp returns open, unexpired markets for the dApp, newest
// first.
func (s *MarketStore) ListActiveByDApp(_ context.Context, dappID string, now time.Time) ([]domain.Market, error) {
	return s.filter(func(m *domain.Market) bool {
		return m.DAppID == dappID && m.Status == domain.MarketStatusOpen && !m.Expired(now)
	}), nil
}

// ListExpired returns open markets whose horizon has passed.
func (s *MarketStore) ListExpired(_ context.Context, now time.Time) ([]domain.Market, error) {
	return s.filter(func(m *domain.Market) bool {
		return m.Status == domain.MarketStatusOpen && m.Expired(now)
	}), nil
}

// ListByDApp returns every market for the dApp regardless of status.
func (s *MarketStore) ListByDApp(_ context.Context, dappID string) ([]domain.Market, error) {
	return s.filter(func(m *domain.Market) bool {
		return m.DAppID == dappID
	}), nil
}

// ListResolvedBefore returns resolved or cancelled markets whose resolution
// (or creation, for cancelled markets) predates the cutoff.
func (s *MarketStore) ListResolvedBefore(_ context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Market, error) {
	out := s.filter(func(m *domain.Market) bool {
		switch m.Status {
		case domain.MarketStatusResolved:
			return m.ResolvedAt != nil && m.ResolvedAt.Before(cutoff)
		case domain.MarketStatusCancelled:
			return m.CreatedAt.Before(cutoff)
		}
		return false
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Count returns the number of stored markets.
func (s *MarketStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}

func (s *MarketStore) filter(keep func(*domain.Market) bool) []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Market
	for id := range s.markets {
		m := s.markets[id]
		if keep(&m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
