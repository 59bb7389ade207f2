package driven

import (
	"context"
	"time"
)

// RateLimitStore backs the distributed fixed-window rate limiter with
// atomic counters shared across gateway instances.
type RateLimitStore interface {
	// Increment atomically increments the counter for a client key and
	// returns the new value. A missing key starts at 1.
	Increment(ctx context.Context, clientID string) (int64, error)

	// Expire sets the window TTL on a client key. Called only on the
	// increment that opened the window.
	Expire(ctx context.Context, clientID string, ttl time.Duration) error

	// TTL returns the remaining window for a client key. Non-positive
	// means the key is absent or carries no expiry.
	TTL(ctx context.Context, clientID string) (time.Duration, error)
}
