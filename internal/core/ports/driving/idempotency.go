package driving

import (
	"context"
	"encoding/json"
)

// Idempotency record statuses as exposed to callers.
const (
	IdempotencyProcessing = "PROCESSING"
	IdempotencyCompleted  = "COMPLETED"
)

// IdempotencyResult is the observable state of an idempotency key.
type IdempotencyResult struct {
	// Status is PROCESSING while the first request is in flight,
	// COMPLETED once a response has been stored.
	Status string

	// Response is the stored payload, set only for COMPLETED.
	Response json.RawMessage
}

// IdempotencyService deduplicates externally-retried mutating requests
// (Stripe/AWS-style).
type IdempotencyService interface {
	// Initiate atomically claims a key. Returns true when this is the
	// first sighting and the caller may proceed.
	Initiate(ctx context.Context, key string) (bool, error)

	// CachedResponse returns the key's current state, or nil, nil when
	// the key is absent.
	CachedResponse(ctx context.Context, key string) (*IdempotencyResult, error)

	// StoreResponse overwrites the key with the final payload. Storage
	// failures are logged, never surfaced to the caller's business
	// outcome.
	StoreResponse(ctx context.Context, key string, payload []byte)

	// Delete removes a key. Test-only.
	Delete(ctx context.Context, key string) error
}
