package domain

import (
	"fmt"
	"strings"
)

// Persona identifies an authentication context with its own OAuth client
// and role namespace. The set of personas is closed; anything outside it
// is rejected at the boundary.
type Persona string

const (
	PersonaVendor    Persona = "vendor"
	PersonaConsumer  Persona = "consumer"
	PersonaAffiliate Persona = "affiliate"
	PersonaGMS       Persona = "gms"
)

// AllPersonas lists every supported persona.
var AllPersonas = []Persona{PersonaVendor, PersonaConsumer, PersonaAffiliate, PersonaGMS}

// ParsePersona validates a raw persona value (case-insensitive, trimmed)
// against the closed set. Returns ErrInvalidPersona for anything else.
func ParsePersona(raw string) (Persona, error) {
	switch Persona(strings.ToLower(strings.TrimSpace(raw))) {
	case PersonaVendor:
		return PersonaVendor, nil
	case PersonaConsumer:
		return PersonaConsumer, nil
	case PersonaAffiliate:
		return PersonaAffiliate, nil
	case PersonaGMS:
		return PersonaGMS, nil
	default:
		return "", ErrInvalidPersona
	}
}

func (p Persona) String() string {
	return string(p)
}

// PersonaConfig holds the immutable OAuth settings for one persona.
// Loaded once at startup and never mutated.
type PersonaConfig struct {
	// Issuer is the identity provider base URL, e.g. "https://auth.example.com".
	Issuer string

	// OrganizationID scopes the authorization request to one organization.
	OrganizationID string

	// ClientID identifies the persona's OAuth client. The client uses
	// PKCE, so ClientSecret is kept for completeness but never sent on
	// the token endpoint.
	ClientID     string
	ClientSecret string

	// RedirectURI is the gateway callback registered with the provider.
	RedirectURI string

	// PostLoginRedirectURI is where the browser lands after a
	// successful callback.
	PostLoginRedirectURI string

	// LogoutRedirectURI is returned to the caller on logout.
	LogoutRedirectURI string

	// ProjectID scopes role claims and administrative role grants.
	ProjectID string

	// ManagementToken authorizes administrative role grants. Empty
	// disables grants for this persona.
	ManagementToken string

	// SessionCookieName is the persona-scoped session cookie.
	SessionCookieName string
}

// Validate checks the fields a persona cannot function without.
func (c PersonaConfig) Validate() error {
	switch {
	case c.Issuer == "":
		return fmt.Errorf("issuer is required")
	case c.ClientID == "":
		return fmt.Errorf("client id is required")
	case c.RedirectURI == "":
		return fmt.Errorf("redirect uri is required")
	case c.SessionCookieName == "":
		return fmt.Errorf("session cookie name is required")
	}
	return nil
}

// PersonaRegistry maps each persona to its configuration. It is built
// once at process start; lookups never mutate it.
type PersonaRegistry struct {
	configs map[Persona]PersonaConfig
}

// NewPersonaRegistry builds a registry covering every persona in the
// closed set. A missing or invalid persona configuration is a startup
// error, not something to discover at request time.
func NewPersonaRegistry(configs map[Persona]PersonaConfig) (*PersonaRegistry, error) {
	for _, p := range AllPersonas {
		cfg, ok := configs[p]
		if !ok {
			return nil, fmt.Errorf("persona %s: configuration missing", p)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("persona %s: %w", p, err)
		}
	}
	copied := make(map[Persona]PersonaConfig, len(configs))
	for p, cfg := range configs {
		copied[p] = cfg
	}
	return &PersonaRegistry{configs: copied}, nil
}

// Config returns the configuration for a persona.
func (r *PersonaRegistry) Config(p Persona) (PersonaConfig, error) {
	cfg, ok := r.configs[p]
	if !ok {
		return PersonaConfig{}, ErrInvalidPersona
	}
	return cfg, nil
}
