package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore is the durable ledger of markets and their bets. A market and
// its bets are one aggregate: Save persists the whole record with
// overwrite-on-id semantics, and reads return the bets in placement order.
//
// The store is the sole writer of persisted state. Callers serialize
// read-modify-write cycles per market id through a LockManager; the store
// itself only guarantees that an individual Save is atomic.
type MarketStore interface {
	Save(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)

	// ListActiveByDApp returns open markets for the dApp whose expiry is
	// still in the future as of now.
	ListActiveByDApp(ctx context.Context, dappID string, now time.Time) ([]Market, error)

	// ListExpired returns open markets whose expiry has passed as of now.
	ListExpired(ctx context.Context, now time.Time) ([]Market, error)

	ListByDApp(ctx context.Context, dappID string) ([]Market, error)

	// ListResolvedBefore returns resolved or cancelled markets that left the
	// open state before the cutoff. Used by the cold-storage archiver.
	ListResolvedBefore(ctx context.Context, cutoff time.Time, opts ListOpts) ([]Market, error)

	Count(ctx context.Context) (int64, error)
}

// FlagStore persists manual safety flags.
type FlagStore interface {
	Save(ctx context.Context, flag SafetyFlag) error
	ListByDApp(ctx context.Context, dappID string) ([]SafetyFlag, error)
}
