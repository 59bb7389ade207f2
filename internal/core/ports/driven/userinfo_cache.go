package driven

import (
	"context"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
)

// UserInfoCache holds user-info lookups keyed by access token. It is
// never authoritative: absence always triggers a live fetch, never a
// failure. Entries expire on their own and are invalidated explicitly
// whenever their token is rotated.
type UserInfoCache interface {
	// Get returns the cached user info for an access token, or nil, nil
	// on a miss.
	Get(ctx context.Context, accessToken string) (domain.UserInfo, error)

	// Set caches user info for an access token with the cache's TTL.
	Set(ctx context.Context, accessToken string, info domain.UserInfo) error

	// Invalidate removes the entry for an access token.
	Invalidate(ctx context.Context, accessToken string) error
}
