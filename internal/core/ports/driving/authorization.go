package driving

import (
	"context"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
)

// AuthorizationService answers the reverse proxy's auth-subrequests.
type AuthorizationService interface {
	// Verify resolves the session behind sessionID, refreshing tokens
	// and re-checking the persona role as needed, and returns the
	// resolved user info. sessionID is the raw cookie value; empty
	// means no session cookie was presented.
	Verify(ctx context.Context, persona domain.Persona, sessionID string) (domain.UserInfo, error)
}
