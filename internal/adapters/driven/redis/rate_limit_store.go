package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.RateLimitStore = (*RateLimitStore)(nil)

const rateLimitPrefix = "ratelimit:"

// RateLimitStore implements driven.RateLimitStore using Redis INCR, so
// the counter is accurate across all gateway instances.
type RateLimitStore struct {
	client *redis.Client
}

// NewRateLimitStore creates a new Redis-backed RateLimitStore.
func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// Increment atomically increments the counter for a client key and
// returns the new value.
func (s *RateLimitStore) Increment(ctx context.Context, clientID string) (int64, error) {
	count, err := s.client.Incr(ctx, rateLimitPrefix+clientID).Result()
	if err != nil {
		return 0, fmt.Errorf("increment rate limit counter: %w", err)
	}
	return count, nil
}

// Expire sets the window TTL on a client key.
func (s *RateLimitStore) Expire(ctx context.Context, clientID string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, rateLimitPrefix+clientID, ttl).Err(); err != nil {
		return fmt.Errorf("expire rate limit counter: %w", err)
	}
	return nil
}

// TTL returns the remaining window for a client key. Redis reports -1
// for no expiry and -2 for a missing key; both come back non-positive.
func (s *RateLimitStore) TTL(ctx context.Context, clientID string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, rateLimitPrefix+clientID).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit counter ttl: %w", err)
	}
	return ttl, nil
}
