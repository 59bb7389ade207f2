package driven

import (
	"context"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
)

// IdentityProvider covers the four outbound calls the gateway makes to
// the external OIDC provider. Every call is bounded by the client's
// timeout; UserInfo additionally retries transient faults.
type IdentityProvider interface {
	// ExchangeCode exchanges an authorization code plus PKCE verifier
	// for the provider's raw token response.
	ExchangeCode(ctx context.Context, cfg domain.PersonaConfig, code, codeVerifier string) (domain.TokenSet, error)

	// UserInfo fetches the user-info payload for an access token.
	UserInfo(ctx context.Context, issuer, accessToken string) (domain.UserInfo, error)

	// GrantRole requests an administrative role grant for the persona's
	// project. A provider-reported "already exists" is success. Returns
	// false, nil when the persona has no management credential.
	GrantRole(ctx context.Context, cfg domain.PersonaConfig, userID string, persona domain.Persona) (bool, error)

	// Refresh exchanges a refresh token for a new raw token response.
	Refresh(ctx context.Context, cfg domain.PersonaConfig, refreshToken string) (domain.TokenSet, error)
}
