package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driving"
)

// Ensure idempotencyService implements IdempotencyService
var _ driving.IdempotencyService = (*idempotencyService)(nil)

const (
	// processingSentinel is the value stored while the first request is
	// in flight. A stored response overwrites it.
	processingSentinel = "PROCESSING"

	// idempotencyTTL bounds both the sentinel and the stored response,
	// each from its own write time.
	idempotencyTTL = 15 * time.Minute
)

// idempotencyService deduplicates retried requests over a single store
// keyspace: set-if-absent claims a key, an unconditional overwrite
// records the outcome.
type idempotencyService struct {
	store  driven.IdempotencyStore
	logger *slog.Logger
}

// NewIdempotencyService creates a new idempotency engine.
func NewIdempotencyService(store driven.IdempotencyStore, logger *slog.Logger) driving.IdempotencyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &idempotencyService{store: store, logger: logger}
}

// Initiate atomically claims a key with the PROCESSING sentinel.
// Exactly one of any number of concurrent callers gets true.
func (s *idempotencyService) Initiate(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, domain.InvalidInput("idempotency key is required")
	}

	stored, err := s.store.Initiate(ctx, key, idempotencyTTL)
	if err != nil {
		s.logger.Error("initiate idempotency key", "error", err)
		return false, domain.Internal("idempotency check failed")
	}
	if stored {
		s.logger.Info("idempotency key initiated", "key", key)
	} else {
		s.logger.Warn("duplicate idempotency key", "key", key)
	}
	return stored, nil
}

// CachedResponse reports the key's state: PROCESSING while the sentinel
// is still stored, COMPLETED with the payload once a response landed,
// nil when the key is absent or expired.
func (s *idempotencyService) CachedResponse(ctx context.Context, key string) (*driving.IdempotencyResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil
	}

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Error("read idempotency key", "error", err)
		return nil, domain.Internal("idempotency check failed")
	}
	if raw == nil {
		return nil, nil
	}

	if string(raw) == processingSentinel {
		return &driving.IdempotencyResult{Status: driving.IdempotencyProcessing}, nil
	}
	return &driving.IdempotencyResult{
		Status:   driving.IdempotencyCompleted,
		Response: raw,
	}, nil
}

// StoreResponse overwrites the key with the final payload and a fresh
// TTL. Failures are logged and swallowed: a lost cache entry must never
// fail the business operation it was recording.
func (s *idempotencyService) StoreResponse(ctx context.Context, key string, payload []byte) {
	if strings.TrimSpace(key) == "" {
		s.logger.Warn("store response with empty idempotency key")
		return
	}
	if len(payload) == 0 {
		s.logger.Warn("store response with empty payload", "key", key)
		return
	}

	if err := s.store.StoreResponse(ctx, key, payload, idempotencyTTL); err != nil {
		s.logger.Error("store idempotency response", "key", key, "error", err)
		return
	}
	s.logger.Info("idempotency response stored", "key", key)
}

// Delete removes a key. Keys expire on their own in production; this
// exists for tests only.
func (s *idempotencyService) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return domain.InvalidInput("idempotency key is required")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error("delete idempotency key", "key", key, "error", err)
		return domain.Internal("delete failed")
	}
	s.logger.Warn("idempotency key deleted", "key", key)
	return nil
}
