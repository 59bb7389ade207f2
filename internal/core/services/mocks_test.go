package services

import (
	"context"
	"testing"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
)

// testPersonaConfig builds a complete config for one persona.
func testPersonaConfig(persona domain.Persona) domain.PersonaConfig {
	return domain.PersonaConfig{
		Issuer:               "https://auth.example.com",
		OrganizationID:       "org-" + string(persona),
		ClientID:             "client-" + string(persona),
		RedirectURI:          "https://gateway.example.com/api/v1/auth/callback",
		PostLoginRedirectURI: "https://" + string(persona) + ".example.com/dashboard",
		LogoutRedirectURI:    "https://" + string(persona) + ".example.com/",
		ProjectID:            "project-1",
		ManagementToken:      "mgmt-token",
		SessionCookieName:    string(persona) + "_session",
	}
}

func newTestRegistry(t *testing.T) *domain.PersonaRegistry {
	t.Helper()
	configs := make(map[domain.Persona]domain.PersonaConfig)
	for _, p := range domain.AllPersonas {
		configs[p] = testPersonaConfig(p)
	}
	registry, err := domain.NewPersonaRegistry(configs)
	if err != nil {
		t.Fatalf("failed to build test registry: %v", err)
	}
	return registry
}

// mockFlowStateStore implements driven.FlowStateStore for testing
type mockFlowStateStore struct {
	states     map[string]*driven.FlowState
	savedTTL   time.Duration
	saveErr    error
	consumeErr error
}

func newMockFlowStateStore() *mockFlowStateStore {
	return &mockFlowStateStore{states: make(map[string]*driven.FlowState)}
}

func (m *mockFlowStateStore) Save(ctx context.Context, state string, fs *driven.FlowState, ttl time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[state] = fs
	m.savedTTL = ttl
	return nil
}

func (m *mockFlowStateStore) Consume(ctx context.Context, state string) (*driven.FlowState, error) {
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	fs, ok := m.states[state]
	if !ok {
		return nil, nil
	}
	delete(m.states, state)
	return fs, nil
}

// mockSessionStore implements driven.SessionStore for testing
type mockSessionStore struct {
	sessions  map[string]domain.TokenSet
	savedTTL  time.Duration
	saveCalls int
	saveErr   error
	getErr    error
	deleteErr error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]domain.TokenSet)}
}

func (m *mockSessionStore) Save(ctx context.Context, sessionID string, tokens domain.TokenSet, ttl time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[sessionID] = tokens
	m.savedTTL = ttl
	m.saveCalls++
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (domain.TokenSet, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	tokens, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return tokens, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, sessionID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, sessionID)
	return nil
}

// mockUserInfoCache implements driven.UserInfoCache for testing
type mockUserInfoCache struct {
	entries     map[string]domain.UserInfo
	invalidated []string
	getErr      error
	setErr      error
}

func newMockUserInfoCache() *mockUserInfoCache {
	return &mockUserInfoCache{entries: make(map[string]domain.UserInfo)}
}

func (m *mockUserInfoCache) Get(ctx context.Context, accessToken string) (domain.UserInfo, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	info, ok := m.entries[accessToken]
	if !ok {
		return nil, nil
	}
	return info, nil
}

func (m *mockUserInfoCache) Set(ctx context.Context, accessToken string, info domain.UserInfo) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[accessToken] = info
	return nil
}

func (m *mockUserInfoCache) Invalidate(ctx context.Context, accessToken string) error {
	delete(m.entries, accessToken)
	m.invalidated = append(m.invalidated, accessToken)
	return nil
}

// mockIdentityProvider implements driven.IdentityProvider for testing.
// User info is keyed by access token so refreshed tokens can resolve to
// different claims than the originals.
type mockIdentityProvider struct {
	exchangeTokens domain.TokenSet
	exchangeErr    error

	userInfoByToken map[string]domain.UserInfo
	userInfoErr     error

	refreshTokens domain.TokenSet
	refreshErr    error

	grantResult bool
	grantErr    error

	exchangeCalls int
	userInfoCalls int
	refreshCalls  int
	grantCalls    int
}

func newMockIdentityProvider() *mockIdentityProvider {
	return &mockIdentityProvider{userInfoByToken: make(map[string]domain.UserInfo)}
}

func (m *mockIdentityProvider) ExchangeCode(ctx context.Context, cfg domain.PersonaConfig, code, codeVerifier string) (domain.TokenSet, error) {
	m.exchangeCalls++
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return m.exchangeTokens, nil
}

func (m *mockIdentityProvider) UserInfo(ctx context.Context, issuer, accessToken string) (domain.UserInfo, error) {
	m.userInfoCalls++
	if m.userInfoErr != nil {
		return nil, m.userInfoErr
	}
	info, ok := m.userInfoByToken[accessToken]
	if !ok {
		return nil, nil
	}
	return info, nil
}

func (m *mockIdentityProvider) GrantRole(ctx context.Context, cfg domain.PersonaConfig, userID string, persona domain.Persona) (bool, error) {
	m.grantCalls++
	if m.grantErr != nil {
		return false, m.grantErr
	}
	return m.grantResult, nil
}

func (m *mockIdentityProvider) Refresh(ctx context.Context, cfg domain.PersonaConfig, refreshToken string) (domain.TokenSet, error) {
	m.refreshCalls++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.refreshTokens, nil
}

// mockIdempotencyStore implements driven.IdempotencyStore for testing
type mockIdempotencyStore struct {
	values      map[string][]byte
	initiateErr error
	getErr      error
	storeErr    error
	deleteErr   error
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{values: make(map[string][]byte)}
}

func (m *mockIdempotencyStore) Initiate(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.initiateErr != nil {
		return false, m.initiateErr
	}
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key] = []byte(processingSentinel)
	return true, nil
}

func (m *mockIdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (m *mockIdempotencyStore) StoreResponse(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.values[key] = payload
	return nil
}

func (m *mockIdempotencyStore) Delete(ctx context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.values, key)
	return nil
}

// rolesClaim builds the provider's role claim shape for one persona.
func rolesClaim(persona domain.Persona) map[string]any {
	return map[string]any{string(persona): map[string]any{"org-1": "example.com"}}
}

// userInfoWithRole builds a user info payload carrying the persona role
// in the global roles claim.
func userInfoWithRole(persona domain.Persona) domain.UserInfo {
	return domain.UserInfo{
		"sub":                   "user-1",
		"email":                 "user@example.com",
		domain.GlobalRolesClaim: rolesClaim(persona),
	}
}

// userInfoWithoutRole builds a user info payload with no role claims.
func userInfoWithoutRole() domain.UserInfo {
	return domain.UserInfo{
		"sub":   "user-1",
		"email": "user@example.com",
	}
}
