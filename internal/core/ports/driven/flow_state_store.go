package driven

import (
	"context"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
)

// FlowState is the transient record created when an authorization flow
// starts and consumed exactly once at the callback.
type FlowState struct {
	// CodeVerifier is the PKCE code verifier (plain text, not hashed).
	CodeVerifier string `json:"code_verifier"`

	// Persona is the authentication context the flow was started for.
	Persona domain.Persona `json:"persona"`
}

// FlowStateStore manages pending authorization flow state keyed by the
// opaque state token. Records are single-use and self-expiring.
type FlowStateStore interface {
	// Save stores the flow state under the given state token with the
	// provided TTL.
	Save(ctx context.Context, state string, fs *FlowState, ttl time.Duration) error

	// Consume atomically retrieves and deletes the flow state,
	// guaranteeing single-use semantics even when callbacks race.
	// Returns nil, nil when the state is absent or expired.
	Consume(ctx context.Context, state string) (*FlowState, error)
}
