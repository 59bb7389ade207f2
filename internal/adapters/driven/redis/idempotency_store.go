package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.IdempotencyStore = (*IdempotencyStore)(nil)

const idempotencyPrefix = "idempotency:"

// IdempotencyStore implements driven.IdempotencyStore using Redis.
// Initiate relies on SET NX so exactly one of any number of racing
// writers claims a key, across all gateway instances.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates a new Redis-backed IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Initiate atomically writes the sentinel if the key is absent.
// Returns true when this caller won the first-write race.
func (s *IdempotencyStore) Initiate(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	stored, err := s.client.SetNX(ctx, idempotencyPrefix+key, "PROCESSING", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("initiate idempotency key: %w", err)
	}
	return stored, nil
}

// Get returns the raw stored value, or nil, nil when the key is absent.
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return data, nil
}

// StoreResponse unconditionally overwrites the key with the payload and
// a fresh TTL.
func (s *IdempotencyStore) StoreResponse(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, idempotencyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency response: %w", err)
	}
	return nil
}

// Delete removes the key.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete idempotency key: %w", err)
	}
	return nil
}
