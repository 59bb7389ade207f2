package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driving"
)

// Ensure authenticationService implements AuthenticationService
var _ driving.AuthenticationService = (*authenticationService)(nil)

const (
	// flowStateTTL bounds how long a started flow may wait for its callback.
	flowStateTTL = 10 * time.Minute

	// DefaultSessionTTL applies when no session TTL is configured.
	DefaultSessionTTL = 7 * 24 * time.Hour

	baseScopes = "openid profile email offline_access"
)

// AuthenticationServiceConfig holds dependencies for the authentication service.
type AuthenticationServiceConfig struct {
	Registry   *domain.PersonaRegistry
	FlowStates driven.FlowStateStore
	Sessions   driven.SessionStore
	Provider   driven.IdentityProvider

	// SessionTTL is the lifetime of issued sessions. Zero selects
	// DefaultSessionTTL.
	SessionTTL time.Duration

	Logger *slog.Logger
}

// authenticationService implements the AuthenticationService interface.
type authenticationService struct {
	registry   *domain.PersonaRegistry
	flowStates driven.FlowStateStore
	sessions   driven.SessionStore
	provider   driven.IdentityProvider
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthenticationService creates a new authentication flow service.
func NewAuthenticationService(cfg AuthenticationServiceConfig) driving.AuthenticationService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &authenticationService{
		registry:   cfg.Registry,
		flowStates: cfg.FlowStates,
		sessions:   cfg.Sessions,
		provider:   cfg.Provider,
		sessionTTL: ttl,
		logger:     logger,
	}
}

// Start begins an authorization flow: PKCE credentials and a state token
// are generated, the flow state is stored under the state token, and the
// provider authorization URL is returned for the HTTP layer to redirect to.
func (s *authenticationService) Start(ctx context.Context, persona domain.Persona) (*driving.StartResult, error) {
	cfg, err := s.registry.Config(persona)
	if err != nil {
		return nil, domain.InvalidInput("invalid persona")
	}

	verifier, err := GenerateCodeVerifier()
	if err != nil {
		s.logger.Error("generate code verifier", "error", err)
		return nil, domain.Internal("failed to start authentication")
	}
	challenge := CodeChallenge(verifier)
	state := GenerateState()

	fs := &driven.FlowState{CodeVerifier: verifier, Persona: persona}
	if err := s.flowStates.Save(ctx, state, fs, flowStateTTL); err != nil {
		s.logger.Error("save flow state", "persona", persona, "error", err)
		return nil, domain.Internal("failed to start authentication")
	}

	scope := baseScopes + " " + fmt.Sprintf(domain.OrgScopeFormat, cfg.OrganizationID)
	params := url.Values{
		"client_id":             {cfg.ClientID},
		"response_type":         {"code"},
		"scope":                 {scope},
		"redirect_uri":          {cfg.RedirectURI},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"state":                 {state},
	}

	s.logger.Info("authentication flow started", "persona", persona, "organization", cfg.OrganizationID)

	return &driving.StartResult{
		AuthorizationURL: cfg.Issuer + "/oauth/v2/authorize?" + params.Encode(),
		State:            state,
	}, nil
}

// Callback completes the flow started by Start. The state token is
// consumed atomically before anything else: a replayed state fails here
// and never reaches the provider.
func (s *authenticationService) Callback(ctx context.Context, code, state, providerError string) (*driving.CallbackResult, error) {
	if providerError != "" {
		s.logger.Warn("oauth provider returned error", "error", providerError)
		return nil, domain.InvalidInput("oauth error: " + providerError)
	}
	if code == "" || state == "" {
		return nil, domain.InvalidInput("missing code or state")
	}

	fs, err := s.flowStates.Consume(ctx, state)
	if err != nil {
		s.logger.Error("consume flow state", "error", err)
		return nil, domain.Internal("authentication failed")
	}
	if fs == nil {
		return nil, domain.InvalidInput("invalid or expired state")
	}

	cfg, err := s.registry.Config(fs.Persona)
	if err != nil {
		return nil, domain.InvalidInput("invalid persona")
	}

	tokens, err := s.provider.ExchangeCode(ctx, cfg, code, fs.CodeVerifier)
	if err != nil || tokens.AccessToken() == "" {
		s.logger.Error("token exchange failed", "persona", fs.Persona, "error", err)
		return nil, domain.Internal("failed to get access token")
	}

	info, err := s.provider.UserInfo(ctx, cfg.Issuer, tokens.AccessToken())
	if err != nil || info == nil {
		s.logger.Error("user info fetch failed", "persona", fs.Persona, "error", err)
		return nil, domain.Internal("failed to get user info")
	}
	userID := info.Subject()

	if !info.HasPersonaRole(cfg.ProjectID, fs.Persona) {
		s.logger.Info("persona role missing, requesting grant", "persona", fs.Persona, "user", userID)

		granted, err := s.provider.GrantRole(ctx, cfg, userID, fs.Persona)
		if err != nil {
			s.logger.Warn("role grant failed", "persona", fs.Persona, "user", userID, "error", err)
		} else {
			s.logger.Info("role grant completed", "persona", fs.Persona, "granted", granted)
		}

		// New tokens pick up the freshly granted claims. The grant
		// outcome does not gate this: grants are idempotent and may
		// have landed on a previous attempt.
		refreshed, err := s.provider.Refresh(ctx, cfg, tokens.RefreshToken())
		if err != nil || refreshed == nil {
			s.logger.Warn("token refresh after grant failed, keeping exchanged tokens", "persona", fs.Persona, "error", err)
		} else {
			tokens = refreshed
		}
	}

	sessionID := GenerateSessionID()
	if err := s.sessions.Save(ctx, sessionID, tokens, s.sessionTTL); err != nil {
		s.logger.Error("save session", "persona", fs.Persona, "error", err)
		return nil, domain.Internal("authentication failed")
	}

	s.logger.Info("session issued", "persona", fs.Persona, "user", userID)

	return &driving.CallbackResult{
		SessionID:   sessionID,
		CookieName:  cfg.SessionCookieName,
		MaxAge:      int(s.sessionTTL.Seconds()),
		RedirectURI: cfg.PostLoginRedirectURI,
	}, nil
}

// Logout deletes the session, if one exists, and reports which cookie to
// clear. A logout with nothing to clear still succeeds.
func (s *authenticationService) Logout(ctx context.Context, persona domain.Persona, sessionID string) (*driving.LogoutResult, error) {
	cfg, err := s.registry.Config(persona)
	if err != nil {
		return nil, domain.InvalidInput("invalid persona")
	}

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.Error("delete session", "persona", persona, "error", err)
			return nil, domain.Internal("logout failed")
		}
		s.logger.Info("session deleted", "persona", persona)
	} else {
		s.logger.Warn("logout without session cookie", "persona", persona)
	}

	return &driving.LogoutResult{
		CookieName:  cfg.SessionCookieName,
		RedirectURI: cfg.LogoutRedirectURI,
	}, nil
}
