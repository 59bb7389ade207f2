package driven

import (
	"context"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
)

// SessionStore persists server-side sessions keyed by opaque session id.
// The value is the provider's raw token set; a refresh overwrites the
// whole value at the same key and resets the TTL.
type SessionStore interface {
	// Save writes the token set under the session id with the given TTL.
	// Used both for initial issuance and for refresh-overwrites.
	Save(ctx context.Context, sessionID string, tokens domain.TokenSet, ttl time.Duration) error

	// Get retrieves a session's token set. Returns nil, nil when the
	// session is absent or expired.
	Get(ctx context.Context, sessionID string) (domain.TokenSet, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
