package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driving"
)

// Ensure authorizationService implements AuthorizationService
var _ driving.AuthorizationService = (*authorizationService)(nil)

// AuthorizationServiceConfig holds dependencies for the verifier.
type AuthorizationServiceConfig struct {
	Registry *domain.PersonaRegistry
	Sessions driven.SessionStore
	Cache    driven.UserInfoCache
	Provider driven.IdentityProvider

	// SessionTTL is applied on every refresh-write. Zero selects
	// DefaultSessionTTL.
	SessionTTL time.Duration

	Logger *slog.Logger
}

// authorizationService resolves and validates sessions for the reverse
// proxy's auth-subrequests.
type authorizationService struct {
	registry   *domain.PersonaRegistry
	sessions   driven.SessionStore
	cache      driven.UserInfoCache
	provider   driven.IdentityProvider
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthorizationService creates a new authorization verifier.
func NewAuthorizationService(cfg AuthorizationServiceConfig) driving.AuthorizationService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &authorizationService{
		registry:   cfg.Registry,
		sessions:   cfg.Sessions,
		cache:      cfg.Cache,
		provider:   cfg.Provider,
		sessionTTL: ttl,
		logger:     logger,
	}
}

// Verify resolves the session, refreshing tokens when the access token
// no longer yields user info and once more when the persona role is
// absent (role grants land asynchronously; a refreshed token picks up
// new claims). Each recovery path runs exactly one refresh cycle.
func (s *authorizationService) Verify(ctx context.Context, persona domain.Persona, sessionID string) (domain.UserInfo, error) {
	cfg, err := s.registry.Config(persona)
	if err != nil {
		return nil, domain.InvalidInput("invalid persona")
	}
	if sessionID == "" {
		return nil, domain.Unauthenticated("session not found")
	}

	tokens, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Error("load session", "persona", persona, "error", err)
		return nil, domain.Internal("authorization failed")
	}
	if tokens == nil {
		return nil, domain.Unauthenticated("session expired or invalid")
	}
	if !tokens.Valid() {
		return nil, domain.Unauthenticated("invalid session tokens")
	}

	info := s.userInfoByToken(ctx, cfg.Issuer, tokens.AccessToken())
	if info == nil {
		// Cold cache and provider-side token expiry look identical
		// here; either way one refresh-and-retry cycle runs.
		s.logger.Info("user info unavailable, refreshing tokens", "persona", persona)
		tokens, err = s.refreshSession(ctx, cfg, sessionID, tokens)
		if err != nil {
			return nil, err
		}
		info = s.userInfoByToken(ctx, cfg.Issuer, tokens.AccessToken())
		if info == nil {
			return nil, domain.Unauthenticated("failed to get user info after refresh")
		}
	}

	if !info.HasPersonaRole(cfg.ProjectID, persona) {
		s.logger.Warn("persona role missing, refreshing tokens", "persona", persona)
		tokens, err = s.refreshSession(ctx, cfg, sessionID, tokens)
		if err != nil {
			return nil, err
		}
		info = s.userInfoByToken(ctx, cfg.Issuer, tokens.AccessToken())
		if info == nil || !info.HasPersonaRole(cfg.ProjectID, persona) {
			s.logger.Warn("persona role still missing after refresh", "persona", persona)
			return nil, domain.Forbidden("insufficient permissions")
		}
	}

	return info, nil
}

// refreshSession runs one refresh cycle: exchange the refresh token,
// overwrite the session entirely at the same key with the full TTL, and
// invalidate the old access token's cache entry.
func (s *authorizationService) refreshSession(ctx context.Context, cfg domain.PersonaConfig, sessionID string, old domain.TokenSet) (domain.TokenSet, error) {
	refreshed, err := s.provider.Refresh(ctx, cfg, old.RefreshToken())
	if err != nil || refreshed == nil {
		s.logger.Error("token refresh failed", "error", err)
		return nil, domain.Unauthenticated("token refresh failed")
	}
	if !refreshed.Valid() {
		return nil, domain.Unauthenticated("invalid session tokens")
	}

	if err := s.sessions.Save(ctx, sessionID, refreshed, s.sessionTTL); err != nil {
		s.logger.Error("save refreshed session", "error", err)
		return nil, domain.Internal("authorization failed")
	}
	if err := s.cache.Invalidate(ctx, old.AccessToken()); err != nil {
		s.logger.Warn("invalidate user info cache", "error", err)
	}

	return refreshed, nil
}

// userInfoByToken is the cache-or-fetch path. Any failure, cache or
// provider, reads as a miss: the caller cannot distinguish a cold cache
// from an expired token and handles both with the same refresh cycle.
func (s *authorizationService) userInfoByToken(ctx context.Context, issuer, accessToken string) domain.UserInfo {
	cached, err := s.cache.Get(ctx, accessToken)
	if err != nil {
		s.logger.Warn("user info cache read failed", "error", err)
	} else if cached != nil {
		return cached
	}

	info, err := s.provider.UserInfo(ctx, issuer, accessToken)
	if err != nil || info == nil {
		s.logger.Info("user info fetch failed", "error", err)
		return nil
	}

	if err := s.cache.Set(ctx, accessToken, info); err != nil {
		s.logger.Warn("user info cache write failed", "error", err)
	}
	return info
}
