package zitadel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.IdentityProvider = (*Client)(nil)

const (
	tokenPath    = "/oauth/v2/token"
	userInfoPath = "/oidc/v1/userinfo"
	grantsPath   = "/management/v1/users/%s/grants"

	requestTimeout = 10 * time.Second

	// userInfoMaxTries covers the initial attempt plus two retries for
	// transient faults.
	userInfoMaxTries = 3
)

// Client performs the gateway's outbound identity-provider calls.
// Token responses are returned as raw maps so every provider-issued
// field survives into the session record.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an identity provider client with bounded timeouts.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// ExchangeCode exchanges an authorization code plus PKCE verifier for
// tokens. The client is a PKCE public client: the verifier, not a
// client secret, proves possession of the flow.
func (c *Client) ExchangeCode(ctx context.Context, cfg domain.PersonaConfig, code, codeVerifier string) (domain.TokenSet, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {cfg.ClientID},
		"code":          {code},
		"redirect_uri":  {cfg.RedirectURI},
		"code_verifier": {codeVerifier},
	}
	tokens, err := c.postTokenForm(ctx, cfg.Issuer, form)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tokens, nil
}

// Refresh exchanges a refresh token for a new token set.
func (c *Client) Refresh(ctx context.Context, cfg domain.PersonaConfig, refreshToken string) (domain.TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {cfg.ClientID},
		"refresh_token": {refreshToken},
	}
	tokens, err := c.postTokenForm(ctx, cfg.Issuer, form)
	if err != nil {
		return nil, fmt.Errorf("refresh tokens: %w", err)
	}
	return tokens, nil
}

// UserInfo fetches the user-info payload for an access token, retrying
// transient transport faults. Client errors from the provider are
// permanent: retrying a rejected token cannot help.
func (c *Client) UserInfo(ctx context.Context, issuer, accessToken string) (domain.UserInfo, error) {
	operation := func() (domain.UserInfo, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+userInfoPath, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(fmt.Errorf("user info rejected: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("user info failed: status %d", resp.StatusCode)
		}

		var info domain.UserInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return info, nil
	}

	info, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(userInfoMaxTries),
	)
	if err != nil {
		c.logger.Error("user info fetch failed after retries", "error", err)
		return nil, fmt.Errorf("get user info: %w", err)
	}
	return info, nil
}

// GrantRole requests an administrative role grant for the persona's
// project. The provider reports an existing grant as a conflict; that
// counts as success since the desired state already holds.
func (c *Client) GrantRole(ctx context.Context, cfg domain.PersonaConfig, userID string, persona domain.Persona) (bool, error) {
	if strings.TrimSpace(cfg.ManagementToken) == "" {
		c.logger.Warn("no management token configured, skipping role grant", "persona", persona)
		return false, nil
	}

	payload, err := json.Marshal(map[string]any{
		"projectId": cfg.ProjectID,
		"roleKeys":  []string{string(persona)},
	})
	if err != nil {
		return false, fmt.Errorf("marshal grant request: %w", err)
	}

	grantURL := cfg.Issuer + fmt.Sprintf(grantsPath, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, grantURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.ManagementToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusConflict:
		// Role already granted.
		return true, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("role grant rejected", "status", resp.StatusCode, "body", string(body))
		return false, fmt.Errorf("grant role: status %d", resp.StatusCode)
	}
}

// postTokenForm posts a form to the issuer's token endpoint and decodes
// the raw token response.
func (c *Client) postTokenForm(ctx context.Context, issuer string, form url.Values) (domain.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, issuer+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("token endpoint rejected request", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("token request failed: status %d", resp.StatusCode)
	}

	var tokens domain.TokenSet
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return tokens, nil
}
