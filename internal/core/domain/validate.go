package domain

import (
	"regexp"
	"strings"
)

var (
	personaPattern  = regexp.MustCompile(`^[a-z]{3,20}$`)
	uuidPattern     = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	authCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	sanitizePattern = regexp.MustCompile("[<>\"'`]")
)

// Sanitize strips characters usable for markup injection and trims
// surrounding whitespace.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizePattern.ReplaceAllString(input, ""))
}

// IsValidPersonaFormat checks the shape of a persona value before it is
// matched against the closed set: lowercase letters, 3-20 characters.
func IsValidPersonaFormat(persona string) bool {
	return personaPattern.MatchString(strings.ToLower(persona))
}

// IsValidState checks that a state token is a UUID, the only format the
// gateway ever generates.
func IsValidState(state string) bool {
	return uuidPattern.MatchString(strings.ToLower(state))
}

// IsValidSessionID checks that a session id is a UUID.
func IsValidSessionID(sessionID string) bool {
	return uuidPattern.MatchString(strings.ToLower(sessionID))
}

// IsValidAuthCode checks an authorization code's shape: 20-512
// characters of the URL-safe alphabet.
func IsValidAuthCode(code string) bool {
	return len(code) >= 20 && len(code) <= 512 && authCodePattern.MatchString(code)
}
