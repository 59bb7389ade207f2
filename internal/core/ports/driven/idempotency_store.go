package driven

import (
	"context"
	"time"
)

// IdempotencyStore is the single keyspace backing request deduplication.
// Values are either the PROCESSING sentinel or the stored response
// payload; the store does not interpret them.
type IdempotencyStore interface {
	// Initiate atomically writes the PROCESSING sentinel if the key is
	// absent (set-if-absent with TTL). Returns true when this caller
	// won the first-write race.
	Initiate(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Get returns the raw stored value, or nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// StoreResponse unconditionally overwrites the key with the final
	// payload and a fresh TTL.
	StoreResponse(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Delete removes the key. Test-only path; production keys expire on
	// their own.
	Delete(ctx context.Context, key string) error
}
