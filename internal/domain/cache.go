package domain

import (
	"context"
	"time"
)

// MarketCache is a read-through cache in front of the market ledger. Writers
// invalidate after every mutation; a stale entry only ever survives until its
// TTL.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// LockManager serializes mutations per market id. Acquire is non-blocking:
// it returns ErrLockHeld when another holder owns the key. On success the
// returned release function must be called; it is safe to call more than
// once.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SignalBus is the fan-out channel for market events (created, bet placed,
// resolved, cancelled) consumed by the WebSocket hub and other collaborators.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Event channel names published on the SignalBus. Payloads are the JSON
// records defined in this package.
const (
	ChannelMarkets     = "markets"
	ChannelBets        = "bets"
	ChannelResolutions = "resolutions"
)
