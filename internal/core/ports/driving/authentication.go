package driving

import (
	"context"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
)

// StartResult is everything the HTTP layer needs to redirect the
// browser to the provider's authorization endpoint.
type StartResult struct {
	// AuthorizationURL is the fully built provider authorization URL.
	AuthorizationURL string

	// State is the opaque token bound to this flow, already embedded in
	// the URL. Exposed for logging and tests.
	State string
}

// CallbackResult describes the issued session. The HTTP layer turns it
// into a Set-Cookie header and a redirect.
type CallbackResult struct {
	SessionID   string
	CookieName  string
	MaxAge      int // seconds, matches the session TTL
	RedirectURI string
}

// LogoutResult carries the cookie to clear and where to send the browser.
type LogoutResult struct {
	CookieName  string
	RedirectURI string
}

// AuthenticationService owns the authorization-code flow state machine:
// start, provider callback, and logout.
type AuthenticationService interface {
	// Start begins an authorization flow for a persona: generates PKCE
	// credentials and a state token, stores the flow state, and returns
	// the provider authorization URL.
	Start(ctx context.Context, persona domain.Persona) (*StartResult, error)

	// Callback completes the flow: consumes the single-use state,
	// exchanges the code, verifies (or grants) the persona role, and
	// issues a session. providerError is the error query parameter
	// relayed by the provider; when set, the flow fails without
	// touching the store.
	Callback(ctx context.Context, code, state, providerError string) (*CallbackResult, error)

	// Logout deletes the session behind the given id, if any, and
	// returns the persona's logout redirect. Logout is idempotent: a
	// missing session is not an error.
	Logout(ctx context.Context, persona domain.Persona, sessionID string) (*LogoutResult, error)
}
