package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (webhook event ids, import runs)
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL is how long processed webhook events are remembered
const DefaultIdempotencyTTL = 24 * time.Hour
