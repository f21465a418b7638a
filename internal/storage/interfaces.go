package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
)

// SwapCache defines the interface for caching recent swaps
type SwapCache interface {
	// AddRecentSwap adds a swap to the recent swaps list
	AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent swaps
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// SwapPublisher fans executed swaps out to live subscribers
type SwapPublisher interface {
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error
}

// SwapStore defines the interface for persistent swap storage
type SwapStore interface {
	// InsertSwap inserts a swap event into the store
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// SwapHandler is a function that processes swap events
type SwapHandler func(*models.SwapEvent)
