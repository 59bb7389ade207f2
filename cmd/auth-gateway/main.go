package main

// @title           GMS Auth Gateway API
// @version         1.0
// @description     Authentication and authorization gateway in front of the identity provider. Runs the authorization-code flow with PKCE for each persona, answers reverse-proxy auth subrequests, and deduplicates retried mutations.

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/gms-platform/auth-gateway/internal/adapters/driven/redis"
	"github.com/gms-platform/auth-gateway/internal/adapters/driven/zitadel"
	"github.com/gms-platform/auth-gateway/internal/adapters/driving/http"
	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/services"
)

var version = "dev"

func main() {
	log.Printf("auth-gateway %s starting", version)

	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "")
	port := getEnvInt("PORT", 8080)
	sessionTTL := time.Duration(getEnvInt("SESSION_TTL_DAYS", 7)) * 24 * time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ===== Initialize Redis (required: all gateway state lives there) =====
	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}
	log.Println("Connecting to Redis...")
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	// ===== Persona registry from environment =====
	registry, err := loadPersonaRegistry()
	if err != nil {
		log.Fatalf("Failed to load persona configuration: %v", err)
	}

	// ===== Driven adapters =====
	flowStates := redisadapter.NewFlowStateStore(redisClient)
	sessions := redisadapter.NewSessionStore(redisClient)
	userInfoCache := redisadapter.NewUserInfoCache(redisClient)
	idempotencyStore := redisadapter.NewIdempotencyStore(redisClient)
	rateLimits := redisadapter.NewRateLimitStore(redisClient)
	provider := zitadel.NewClient(slog.Default())

	// ===== Services =====
	authnService := services.NewAuthenticationService(services.AuthenticationServiceConfig{
		Registry:   registry,
		FlowStates: flowStates,
		Sessions:   sessions,
		Provider:   provider,
		SessionTTL: sessionTTL,
		Logger:     slog.Default(),
	})
	authzService := services.NewAuthorizationService(services.AuthorizationServiceConfig{
		Registry:   registry,
		Sessions:   sessions,
		Cache:      userInfoCache,
		Provider:   provider,
		SessionTTL: sessionTTL,
		Logger:     slog.Default(),
	})
	idemService := services.NewIdempotencyService(idempotencyStore, slog.Default())

	// ===== HTTP server =====
	cfg := http.Config{
		Host:               "0.0.0.0",
		Port:               port,
		Version:            version,
		CookieSecure:       getEnvBool("COOKIE_SECURE", true),
		CookieSameSite:     getEnv("COOKIE_SAME_SITE", "lax"),
		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 10),
	}

	server := http.NewServer(cfg, registry, authnService, authzService, idemService, rateLimits, pinger{redisClient})

	log.Printf("API server starting on :%d", port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// pinger adapts the redis client to the server's health check interface.
type pinger struct {
	client *redis.Client
}

func (p pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// loadPersonaRegistry reads per-persona ZITADEL_<PERSONA>_* variables
// and builds the closed persona registry. Every persona must be fully
// configured; the gateway refuses to start otherwise.
func loadPersonaRegistry() (*domain.PersonaRegistry, error) {
	configs := make(map[domain.Persona]domain.PersonaConfig, len(domain.AllPersonas))
	for _, persona := range domain.AllPersonas {
		prefix := "ZITADEL_" + strings.ToUpper(string(persona)) + "_"
		configs[persona] = domain.PersonaConfig{
			Issuer:               strings.TrimRight(os.Getenv(prefix+"ISSUER"), "/"),
			OrganizationID:       os.Getenv(prefix + "ORG_ID"),
			ClientID:             os.Getenv(prefix + "CLIENT_ID"),
			ClientSecret:         os.Getenv(prefix + "CLIENT_SECRET"),
			RedirectURI:          os.Getenv(prefix + "REDIRECT_URI"),
			PostLoginRedirectURI: os.Getenv(prefix + "POST_LOGIN_REDIRECT_URI"),
			LogoutRedirectURI:    os.Getenv(prefix + "LOGOUT_REDIRECT_URI"),
			ProjectID:            os.Getenv(prefix + "PROJECT_ID"),
			ManagementToken:      os.Getenv(prefix + "MANAGEMENT_TOKEN"),
			SessionCookieName:    getEnv(prefix+"SESSION_COOKIE_NAME", string(persona)+"_session"),
		}
	}
	return domain.NewPersonaRegistry(configs)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
