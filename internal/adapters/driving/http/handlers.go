package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid persona"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// LogoutResponse represents a completed logout
// @Description Logout confirmation with the post-logout landing URI
type LogoutResponse struct {
	Success     bool   `json:"success" example:"true"`
	Message     string `json:"message" example:"logged out successfully"`
	RedirectURI string `json:"redirect_uri" example:"https://vendor.example.com/"`
}

// VerifyResponse represents a successful authorization subrequest
// @Description Resolved identity for an authenticated session
type VerifyResponse struct {
	Success bool   `json:"success" example:"true"`
	Persona string `json:"persona" example:"vendor"`
	UserID  string `json:"userId" example:"249850761306997271"`
	Email   string `json:"email" example:"vendor@example.com"`
}

const maxIdempotencyPayload = 1 << 20 // 1 MiB

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the gateway
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns readiness, verifying the state store connection
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "State store unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.redisClient != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "state store unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current gateway version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Authentication flow endpoints

// handleAuthStart godoc
// @Summary      Start login
// @Description  Begins the authorization-code flow for a persona and redirects the browser to the identity provider
// @Tags         Authentication
// @Param        persona  path  string  true  "Persona name"
// @Success      302  "Redirect to the provider authorization endpoint"
// @Failure      400  {object}  ErrorResponse  "Unknown persona"
// @Failure      500  {object}  ErrorResponse  "Flow state could not be stored"
// @Router       /api/v1/auth/start/{persona} [get]
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	persona, ok := s.personaFromPath(w, r)
	if !ok {
		return
	}

	result, err := s.authnService.Start(r.Context(), persona)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.Redirect(w, r, result.AuthorizationURL, http.StatusFound)
}

// handleAuthCallback godoc
// @Summary      Complete login
// @Description  Receives the provider redirect, exchanges the code, and issues a session cookie
// @Tags         Authentication
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  false  "Flow state token"
// @Param        error  query  string  false  "Provider error code"
// @Success      302  "Redirect to the persona landing page with the session cookie set"
// @Failure      400  "Provider error, bad state, or malformed code"
// @Failure      500  "Token exchange or user info retrieval failed"
// @Router       /api/v1/auth/callback [get]
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := domain.Sanitize(query.Get("code"))
	state := domain.Sanitize(query.Get("state"))
	providerError := domain.Sanitize(query.Get("error"))

	// Shape checks before any store access. A provider error skips
	// them: the service rejects the flow without reading inputs.
	if providerError == "" {
		if state != "" && !domain.IsValidState(state) {
			http.Error(w, "invalid state format", http.StatusBadRequest)
			return
		}
		if code != "" && !domain.IsValidAuthCode(code) {
			http.Error(w, "invalid authorization code format", http.StatusBadRequest)
			return
		}
	}

	result, err := s.authnService.Callback(r.Context(), code, state, providerError)
	if err != nil {
		http.Error(w, err.Error(), domain.StatusOf(err))
		return
	}

	http.SetCookie(w, s.sessionCookie(result.CookieName, result.SessionID, result.MaxAge))
	http.Redirect(w, r, result.RedirectURI, http.StatusFound)
}

// handleLogout godoc
// @Summary      Logout
// @Description  Deletes the persona session, clears the cookie, and returns the post-logout landing URI
// @Tags         Authentication
// @Produce      json
// @Param        persona  path  string  true  "Persona name"
// @Success      200  {object}  LogoutResponse
// @Failure      400  {object}  ErrorResponse  "Unknown persona"
// @Failure      500  {object}  ErrorResponse  "Session deletion failed"
// @Router       /api/v1/auth/logout/{persona} [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	persona, ok := s.personaFromPath(w, r)
	if !ok {
		return
	}

	cfg, err := s.registry.Config(persona)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid persona")
		return
	}

	sessionID := s.sessionIDFromCookie(r, cfg.SessionCookieName)

	result, err := s.authnService.Logout(r.Context(), persona, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// The cookie is cleared even when no session was presented.
	http.SetCookie(w, s.sessionCookie(result.CookieName, "", -1))
	writeJSON(w, http.StatusOK, LogoutResponse{
		Success:     true,
		Message:     "logged out successfully",
		RedirectURI: result.RedirectURI,
	})
}

// Authorization endpoint

// handleVerify godoc
// @Summary      Verify session
// @Description  Auth-subrequest target for the reverse proxy: resolves the session cookie to an identity and role check
// @Tags         Authorization
// @Produce      json
// @Param        persona  path  string  true  "Persona name"
// @Success      200  {object}  VerifyResponse
// @Failure      400  {object}  ErrorResponse  "Unknown persona"
// @Failure      401  {object}  ErrorResponse  "Missing, expired, or unrefreshable session"
// @Failure      403  {object}  ErrorResponse  "Persona role missing"
// @Failure      500  {object}  ErrorResponse  "Store failure"
// @Router       /api/v1/verify/{persona} [get]
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	raw := domain.Sanitize(r.PathValue("persona"))
	persona, err := domain.ParsePersona(raw)
	if err != nil || !domain.IsValidPersonaFormat(raw) {
		writeVerifyError(w, raw, domain.InvalidInput("invalid persona"))
		return
	}

	cfg, err := s.registry.Config(persona)
	if err != nil {
		writeVerifyError(w, raw, domain.InvalidInput("invalid persona"))
		return
	}

	sessionID := s.sessionIDFromCookie(r, cfg.SessionCookieName)

	info, err := s.authzService.Verify(r.Context(), persona, sessionID)
	if err != nil {
		writeVerifyError(w, string(persona), err)
		return
	}

	// Identity headers for the proxy to forward upstream.
	w.Header().Set("X-User-Id", info.Subject())
	w.Header().Set("X-User-Email", info.Email())
	if encoded, err := json.Marshal(info); err == nil {
		w.Header().Set("X-User-Info", string(encoded))
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		Success: true,
		Persona: string(persona),
		UserID:  info.Subject(),
		Email:   info.Email(),
	})
}

// Idempotency endpoints

// handleIdempotencyCheck godoc
// @Summary      Check idempotency key
// @Description  Claims a key for first-time requests or replays the stored outcome for retries
// @Tags         Idempotency
// @Produce      json
// @Param        X-Idempotency-Key  header  string  true  "Idempotency key"
// @Success      200  "Key claimed, or the stored response replayed"
// @Failure      400  {object}  ErrorResponse  "Missing key"
// @Failure      409  "Original request still processing"
// @Failure      500  {object}  ErrorResponse  "Store failure"
// @Router       /api/v1/idempotency/check [get]
func (s *Server) handleIdempotencyCheck(w http.ResponseWriter, r *http.Request) {
	key := domain.Sanitize(r.Header.Get("X-Idempotency-Key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "idempotency key is required")
		return
	}

	cached, err := s.idemService.CachedResponse(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if cached != nil {
		if cached.Status == driving.IdempotencyProcessing {
			writeJSON(w, http.StatusConflict, map[string]string{
				"status":  driving.IdempotencyProcessing,
				"message": "original request still in progress",
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Idempotency-Replay", "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached.Response)
		return
	}

	claimed, err := s.idemService.Initiate(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !claimed {
		// Lost the claim race to a concurrent retry.
		writeJSON(w, http.StatusConflict, map[string]string{
			"status":  driving.IdempotencyProcessing,
			"message": "original request still in progress",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "allowed"})
}

// handleIdempotencyStore godoc
// @Summary      Store idempotent response
// @Description  Records the final response payload for a previously claimed key
// @Tags         Idempotency
// @Accept       json
// @Produce      json
// @Param        X-Idempotency-Key  header  string  true  "Idempotency key"
// @Success      201  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Missing key or empty payload"
// @Router       /api/v1/idempotency/response [post]
func (s *Server) handleIdempotencyStore(w http.ResponseWriter, r *http.Request) {
	key := domain.Sanitize(r.Header.Get("X-Idempotency-Key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "idempotency key is required")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyPayload))
	if err != nil || len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "response payload is required")
		return
	}

	s.idemService.StoreResponse(r.Context(), key, payload)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

// handleIdempotencyDelete godoc
// @Summary      Delete idempotency key
// @Description  Removes a key so the next request is treated as new. Intended for test environments.
// @Tags         Idempotency
// @Produce      json
// @Param        X-Idempotency-Key  header  string  true  "Idempotency key"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Missing key"
// @Failure      500  {object}  ErrorResponse  "Store failure"
// @Router       /api/v1/idempotency/check [delete]
func (s *Server) handleIdempotencyDelete(w http.ResponseWriter, r *http.Request) {
	key := domain.Sanitize(r.Header.Get("X-Idempotency-Key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "idempotency key is required")
		return
	}

	if err := s.idemService.Delete(r.Context(), key); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Helpers

// personaFromPath sanitizes and resolves the persona path segment,
// writing a 400 on failure.
func (s *Server) personaFromPath(w http.ResponseWriter, r *http.Request) (domain.Persona, bool) {
	raw := domain.Sanitize(r.PathValue("persona"))
	if !domain.IsValidPersonaFormat(raw) {
		writeError(w, http.StatusBadRequest, "invalid persona")
		return "", false
	}
	persona, err := domain.ParsePersona(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid persona")
		return "", false
	}
	return persona, true
}

// sessionIDFromCookie reads the persona session cookie. A missing or
// malformed cookie yields the empty id, which downstream treats as no
// session.
func (s *Server) sessionIDFromCookie(r *http.Request, cookieName string) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	value := domain.Sanitize(cookie.Value)
	if !domain.IsValidSessionID(value) {
		return ""
	}
	return value
}

// sessionCookie builds the persona session cookie with the server's
// cookie policy. maxAge < 0 clears the cookie.
func (s *Server) sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: s.cookieSameSite,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError translates a tagged domain error into a JSON error
// response.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, domain.StatusOf(err), err.Error())
}

// writeVerifyError emits the verify error shape the proxy expects.
func writeVerifyError(w http.ResponseWriter, persona string, err error) {
	status := domain.StatusOf(err)
	writeJSON(w, status, map[string]any{
		"error":   err.Error(),
		"persona": persona,
		"status":  status,
	})
}
