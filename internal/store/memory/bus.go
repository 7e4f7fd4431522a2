package memory

import (
	"context"
	"sync"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// SignalBus is an in-process pub/sub bus with the same fire-and-forget
// semantics as the Redis bus: a slow subscriber drops messages rather than
// blocking publishers.
type SignalBus struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewSignalBus creates an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[string][]chan []byte)}
}

// Publish delivers payload to every subscriber of channel.
func (sb *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	for _, ch := range sb.subs[channel] {
		select {
		case ch <- payload:
		default:
			// Subscriber buffer full; drop.
		}
	}
	return nil
}

// Subscribe registers a subscriber for channel. The returned channel closes
// when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	sb.mu.Lock()
	sb.subs[channel] = append(sb.subs[channel], ch)
	sb.mu.Unlock()

	go func() {
		<-ctx.Done()

		sb.mu.Lock()
		subs := sb.subs[channel]
		for i, c := range subs {
			if c == ch {
				sb.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		sb.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
