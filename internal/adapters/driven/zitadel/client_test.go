package zitadel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
)

func testConfig(issuer string) domain.PersonaConfig {
	return domain.PersonaConfig{
		Issuer:            issuer,
		OrganizationID:    "org-1",
		ClientID:          "client-1",
		ClientSecret:      "secret-never-sent",
		RedirectURI:       "https://gateway.example.com/api/v1/auth/callback",
		ProjectID:         "project-1",
		ManagementToken:   "mgmt-token",
		SessionCookieName: "vendor_session",
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v2/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("expected authorization_code, got %s", got)
		}
		if got := r.PostForm.Get("client_id"); got != "client-1" {
			t.Errorf("expected client-1, got %s", got)
		}
		if got := r.PostForm.Get("code"); got != "the-code" {
			t.Errorf("expected the-code, got %s", got)
		}
		if got := r.PostForm.Get("code_verifier"); got != "the-verifier" {
			t.Errorf("expected the-verifier, got %s", got)
		}
		// PKCE public client: the secret never travels.
		if r.PostForm.Has("client_secret") {
			t.Error("client_secret must not be sent")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"id_token":      "idt-1",
			"expires_in":    43200,
		})
	}))
	defer srv.Close()

	client := NewClient(nil)
	tokens, err := client.ExchangeCode(context.Background(), testConfig(srv.URL), "the-code", "the-verifier")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.AccessToken() != "at-1" {
		t.Errorf("expected at-1, got %s", tokens.AccessToken())
	}
	if tokens["id_token"] != "idt-1" {
		t.Error("provider fields must survive decoding")
	}
}

func TestExchangeCode_ProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(nil)
	_, err := client.ExchangeCode(context.Background(), testConfig(srv.URL), "bad-code", "verifier")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("expected refresh_token, got %s", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt-old" {
			t.Errorf("expected rt-old, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-new",
			"refresh_token": "rt-new",
		})
	}))
	defer srv.Close()

	client := NewClient(nil)
	tokens, err := client.Refresh(context.Background(), testConfig(srv.URL), "rt-old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.AccessToken() != "at-new" {
		t.Errorf("expected at-new, got %s", tokens.AccessToken())
	}
}

func TestUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oidc/v1/userinfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("expected bearer token, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":   "user-1",
			"email": "user@example.com",
		})
	}))
	defer srv.Close()

	client := NewClient(nil)
	info, err := client.UserInfo(context.Background(), srv.URL, "at-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Subject() != "user-1" {
		t.Errorf("expected user-1, got %s", info.Subject())
	}
}

func TestUserInfo_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sub": "user-1"})
	}))
	defer srv.Close()

	client := NewClient(nil)
	info, err := client.UserInfo(context.Background(), srv.URL, "at-1")
	if err != nil {
		t.Fatalf("expected recovery on the third attempt: %v", err)
	}
	if info.Subject() != "user-1" {
		t.Errorf("expected user-1, got %s", info.Subject())
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestUserInfo_RejectedTokenIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(nil)
	_, err := client.UserInfo(context.Background(), srv.URL, "expired-token")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt for a 4xx, got %d", got)
	}
}

func TestGrantRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/management/v1/users/user-1/grants" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer mgmt-token" {
			t.Errorf("expected management token, got %s", got)
		}

		var body struct {
			ProjectID string   `json:"projectId"`
			RoleKeys  []string `json:"roleKeys"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.ProjectID != "project-1" {
			t.Errorf("expected project-1, got %s", body.ProjectID)
		}
		if len(body.RoleKeys) != 1 || body.RoleKeys[0] != "vendor" {
			t.Errorf("expected [vendor], got %v", body.RoleKeys)
		}

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(nil)
	granted, err := client.GrantRole(context.Background(), testConfig(srv.URL), "user-1", domain.PersonaVendor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Error("expected grant to succeed")
	}
}

func TestGrantRole_ConflictMeansGranted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"grant already exists"}`, http.StatusConflict)
	}))
	defer srv.Close()

	client := NewClient(nil)
	granted, err := client.GrantRole(context.Background(), testConfig(srv.URL), "user-1", domain.PersonaVendor)
	if err != nil {
		t.Fatalf("an existing grant is success: %v", err)
	}
	if !granted {
		t.Error("expected conflict to count as granted")
	}
}

func TestGrantRole_NoManagementToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request must be sent without a management token")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.ManagementToken = ""

	client := NewClient(nil)
	granted, err := client.GrantRole(context.Background(), cfg, "user-1", domain.PersonaVendor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Error("expected no grant without a management token")
	}
}

func TestGrantRole_ProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(nil)
	granted, err := client.GrantRole(context.Background(), testConfig(srv.URL), "user-1", domain.PersonaVendor)
	if err == nil {
		t.Fatal("expected error")
	}
	if granted {
		t.Error("expected granted=false on rejection")
	}
}
