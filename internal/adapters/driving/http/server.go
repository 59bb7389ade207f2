package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Cookie policy
	cookieSecure   bool
	cookieSameSite http.SameSite

	// Services
	authnService driving.AuthenticationService
	authzService driving.AuthorizationService
	idemService  driving.IdempotencyService

	// Infrastructure
	registry    *domain.PersonaRegistry
	redisClient Pinger
}

// Config holds server configuration
type Config struct {
	Host               string
	Port               int
	Version            string
	CookieSecure       bool
	CookieSameSite     string
	RateLimitEnabled   bool
	RateLimitPerMinute int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		Version:            "dev",
		CookieSecure:       true,
		CookieSameSite:     "lax",
		RateLimitEnabled:   true,
		RateLimitPerMinute: 10,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	registry *domain.PersonaRegistry,
	authnService driving.AuthenticationService,
	authzService driving.AuthorizationService,
	idemService driving.IdempotencyService,
	rateLimits driven.RateLimitStore,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		cookieSecure:   cfg.CookieSecure,
		cookieSameSite: parseSameSite(cfg.CookieSameSite),
		registry:       registry,
		authnService:   authnService,
		authzService:   authzService,
		idemService:    idemService,
		redisClient:    redisClient,
	}

	s.setupRoutes()

	// Outer middleware chain: recovery wraps everything, then security
	// headers on every response, then rate limiting on the flow routes.
	var handler http.Handler = s.router
	rateLimiter := NewRateLimitMiddleware(rateLimits, cfg.RateLimitPerMinute, cfg.RateLimitEnabled)
	handler = rateLimiter.Handler(handler)
	handler = NewSecurityHeadersMiddleware().Handler(handler)
	handler = NewLoggingMiddleware().Handler(handler)
	handler = NewRecoveryMiddleware().Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Authentication flow (public, browser-facing)
	s.router.HandleFunc("GET /api/v1/auth/start/{persona}", s.handleAuthStart)
	s.router.HandleFunc("GET /api/v1/auth/callback", s.handleAuthCallback)
	s.router.HandleFunc("POST /api/v1/auth/logout/{persona}", s.handleLogout)

	// Authorization subrequests (called by the reverse proxy)
	s.router.HandleFunc("GET /api/v1/verify/{persona}", s.handleVerify)

	// Idempotency engine (called by backend services)
	s.router.HandleFunc("GET /api/v1/idempotency/check", s.handleIdempotencyCheck)
	s.router.HandleFunc("POST /api/v1/idempotency/response", s.handleIdempotencyStore)
	s.router.HandleFunc("DELETE /api/v1/idempotency/check", s.handleIdempotencyDelete)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
