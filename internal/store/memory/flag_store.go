package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// FlagStore is a mutex-guarded, in-process safety flag store.
type FlagStore struct {
	mu    sync.RWMutex
	flags map[string]domain.SafetyFlag
}

// NewFlagStore creates an empty FlagStore.
func NewFlagStore() *FlagStore {
	return &FlagStore{flags: make(map[string]domain.SafetyFlag)}
}

// Save stores the flag under its id.
func (s *FlagStore) Save(_ context.Context, flag domain.SafetyFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[flag.ID] = flag
	return nil
}

// ListByDApp returns all flags filed against the dApp, newest first.
func (s *FlagStore) ListByDApp(_ context.Context, dappID string) ([]domain.SafetyFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SafetyFlag
	for _, f := range s.flags {
		if f.DAppID == dappID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Compile-time interface check.
var _ domain.FlagStore = (*FlagStore)(nil)
