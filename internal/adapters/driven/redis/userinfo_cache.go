package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gms-platform/auth-gateway/internal/core/domain"
	"github.com/gms-platform/auth-gateway/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.UserInfoCache = (*UserInfoCache)(nil)

const (
	userInfoPrefix = "token:userinfo:"

	// userInfoTTL keeps entries well inside typical access-token
	// lifetimes; the cache is advisory, never authoritative.
	userInfoTTL = 15 * time.Minute
)

// UserInfoCache implements driven.UserInfoCache using Redis, keyed by
// access-token value so a rotated token naturally misses.
type UserInfoCache struct {
	client *redis.Client
}

// NewUserInfoCache creates a new Redis-backed UserInfoCache.
func NewUserInfoCache(client *redis.Client) *UserInfoCache {
	return &UserInfoCache{client: client}
}

// Get returns the cached user info for an access token, or nil, nil on a miss.
func (c *UserInfoCache) Get(ctx context.Context, accessToken string) (domain.UserInfo, error) {
	data, err := c.client.Get(ctx, userInfoPrefix+accessToken).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}

	var info domain.UserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal user info: %w", err)
	}
	return info, nil
}

// Set caches user info for an access token.
func (c *UserInfoCache) Set(ctx context.Context, accessToken string, info domain.UserInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal user info: %w", err)
	}
	if err := c.client.Set(ctx, userInfoPrefix+accessToken, data, userInfoTTL).Err(); err != nil {
		return fmt.Errorf("cache user info: %w", err)
	}
	return nil
}

// Invalidate removes the entry for an access token.
func (c *UserInfoCache) Invalidate(ctx context.Context, accessToken string) error {
	if err := c.client.Del(ctx, userInfoPrefix+accessToken).Err(); err != nil {
		return fmt.Errorf("invalidate user info: %w", err)
	}
	return nil
}
