package http

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
)

// rateLimitWindow is the fixed counting window shared by all gateway
// instances through the store.
const rateLimitWindow = 60 * time.Second

// RateLimitMiddleware throttles the browser-facing flow endpoints with
// a distributed fixed-window counter. Store failures let the request
// through: an unreachable counter must not take down login.
type RateLimitMiddleware struct {
	store   driven.RateLimitStore
	limit   int
	enabled bool
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(store driven.RateLimitStore, limit int, enabled bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		store:   store,
		limit:   limit,
		enabled: enabled,
	}
}

// Handler wraps an http.Handler with rate limiting on the auth and
// verify routes. Health and idempotency routes are never limited.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled || !isRateLimitedPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		clientID := clientIdentifier(r)

		count, err := m.store.Increment(r.Context(), clientID)
		if err != nil {
			log.Printf("rate limit store unavailable, allowing request: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		if count == 1 {
			if err := m.store.Expire(r.Context(), clientID, rateLimitWindow); err != nil {
				log.Printf("rate limit expire failed for %s: %v", clientID, err)
			}
		}

		seconds := m.windowSeconds(r, clientID)

		if count > int64(m.limit) {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", seconds))
			w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":               "rate limit exceeded",
				"message":             "too many requests, please try again later",
				"limit":               m.limit,
				"current":             count,
				"retry_after_seconds": seconds,
			})
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int64(m.limit)-count))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", seconds))
		next.ServeHTTP(w, r)
	})
}

// windowSeconds reports the whole seconds left in the client's counting
// window, falling back to the full window when the store cannot say.
// The result is never below one second so Retry-After stays meaningful.
func (m *RateLimitMiddleware) windowSeconds(r *http.Request, clientID string) int {
	retryAfter := rateLimitWindow
	if ttl, err := m.store.TTL(r.Context(), clientID); err == nil && ttl > 0 {
		retryAfter = ttl
	}
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func isRateLimitedPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/auth/") ||
		strings.HasPrefix(path, "/api/v1/verify/")
}

// clientIdentifier resolves the caller behind the reverse proxy. The
// first X-Forwarded-For hop wins, then X-Real-IP, then the socket peer.
func clientIdentifier(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.Index(ip, ","); idx >= 0 {
			ip = ip[:idx]
		}
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}

	ip = strings.TrimSpace(ip)
	ip = strings.ReplaceAll(ip, ":", "_")
	ip = strings.ReplaceAll(ip, ".", "_")
	return ip
}

// Security headers middleware

// SecurityHeadersMiddleware sets browser hardening headers on every response
type SecurityHeadersMiddleware struct{}

// NewSecurityHeadersMiddleware creates a new SecurityHeadersMiddleware
func NewSecurityHeadersMiddleware() *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{}
}

// Handler wraps an http.Handler with security headers
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// Logging middleware

// LoggingMiddleware logs HTTP requests
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new LoggingMiddleware
func NewLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{}
}

// Handler wraps an http.Handler with request logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics
type RecoveryMiddleware struct{}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware() *RecoveryMiddleware {
	return &RecoveryMiddleware{}
}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
