package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// LockManager serializes per-key mutations inside a single process. Like the
// Redis lock manager it is non-blocking: a held key returns ErrLockHeld.
// Locks auto-expire after their TTL so a holder that never releases cannot
// wedge a market forever.
type LockManager struct {
	mu   sync.Mutex
	held map[string]time.Time // key -> expiry
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]time.Time)}
}

// Acquire takes the lock for key, returning a release function, or
// domain.ErrLockHeld if another holder owns an unexpired lock.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := time.Now()
	if expiry, ok := lm.held[key]; ok && now.Before(expiry) {
		return nil, domain.ErrLockHeld
	}
	expiry := now.Add(ttl)
	lm.held[key] = expiry

	released := false
	unlock := func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if released {
			return
		}
		released = true
		// Only delete if this is still our acquisition.
		if e, ok := lm.held[key]; ok && e.Equal(expiry) {
			delete(lm.held, key)
		}
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
