package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
)

// EventPublisher receives every committed pool event
type EventPublisher interface {
	// Publish delivers one envelope; errors are logged by the dispatcher and dropped
	Publish(ctx context.Context, env *models.Envelope) error
}

// SwapCache defines the interface for caching swap and pool data
type SwapCache interface {
	EventPublisher

	// GetRecentSwaps retrieves the most recent swaps, optionally for one pool
	GetRecentSwaps(ctx context.Context, pool string, limit int64) ([]*models.SwapRecord, error)

	// SavePool stores the latest snapshot of a pool
	SavePool(ctx context.Context, snap *models.PoolSnapshot) error

	// GetPool retrieves the latest snapshot of a pool
	GetPool(ctx context.Context, pool string) (*models.PoolSnapshot, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// SwapStore defines the interface for persistent swap storage
type SwapStore interface {
	EventPublisher

	// InsertSwap inserts a swap row into the store
	InsertSwap(ctx context.Context, swap *models.SwapRecord) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// SnapshotSink receives pool snapshots after each committed operation
type SnapshotSink interface {
	SavePool(ctx context.Context, snap *models.PoolSnapshot) error
}

// HaltChecker reports whether trading on a pool is halted
type HaltChecker interface {
	IsHalted(ctx context.Context, pool string) (bool, error)
}
