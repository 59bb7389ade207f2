package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// GenerateCodeVerifier produces a PKCE code verifier: 64 random bytes,
// base64url without padding (86 characters, within RFC 7636's 43-128).
func GenerateCodeVerifier() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CodeChallenge derives the S256 code challenge from a verifier.
func CodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState produces an opaque CSRF-binding state token.
func GenerateState() string {
	return uuid.NewString()
}

// GenerateSessionID produces an opaque session id. The raw tokens never
// leave the store; only this id travels in the cookie.
func GenerateSessionID() string {
	return uuid.NewString()
}
