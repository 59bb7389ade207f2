package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.FlowStateStore = (*FlowStateStore)(nil)

const flowStatePrefix = "authstate:"

// FlowStateStore implements driven.FlowStateStore using Redis.
// States expire via Redis TTL and are consumed with GETDEL, so a state
// is usable exactly once even when callbacks race across instances.
type FlowStateStore struct {
	client *redis.Client
}

// NewFlowStateStore creates a new Redis-backed FlowStateStore.
func NewFlowStateStore(client *redis.Client) *FlowStateStore {
	return &FlowStateStore{client: client}
}

// Save stores the flow state under the state token with the given TTL.
func (s *FlowStateStore) Save(ctx context.Context, state string, fs *driven.FlowState, ttl time.Duration) error {
	data, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("marshal flow state: %w", err)
	}
	if err := s.client.Set(ctx, flowStatePrefix+state, data, ttl).Err(); err != nil {
		return fmt.Errorf("save flow state: %w", err)
	}
	return nil
}

// Consume atomically retrieves and deletes the flow state.
// Returns nil, nil when the state is absent or already consumed.
func (s *FlowStateStore) Consume(ctx context.Context, state string) (*driven.FlowState, error) {
	data, err := s.client.GetDel(ctx, flowStatePrefix+state).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume flow state: %w", err)
	}

	var fs driven.FlowState
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("unmarshal flow state: %w", err)
	}
	return &fs, nil
}
