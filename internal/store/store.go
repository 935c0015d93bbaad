// Package store provides the durable key-value storage interface and its
// SQLite implementation. The pipeline keeps its cache, history, and pending
// queue in memory and flushes each collection to the store as a single write
// per mutation, so a crash mid-operation cannot leave them half-updated.
package store

import "context"

// Store is the durable key-value interface the pipeline persists through.
type Store interface {
	// Get returns the bytes stored under key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// Well-known collection keys.
const (
	KeyResultCache  = "result_cache"
	KeyHistory      = "location_history"
	KeyPendingQueue = "pending_queue"
)
