package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerlink/ledgerlink/internal/apikey"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

const (
	// DefaultTTL bounds how long a revoked key can keep authenticating if
	// the synchronous invalidation on revoke is missed.
	DefaultTTL = 60 * time.Second

	// keyPrefix namespaces auth entries; cache keys are hashes, never raw keys.
	keyPrefix = "authctx:"
)

// AuthCache is a Redis-backed cache of authentication lookups, keyed by the
// SHA-256 hash of the presented API key.
type AuthCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewAuthCache creates an auth cache with the default TTL.
func NewAuthCache(client *redis.Client, log *logger.Logger) *AuthCache {
	return NewAuthCacheWithTTL(client, DefaultTTL, log)
}

// NewAuthCacheWithTTL creates an auth cache with a custom TTL.
func NewAuthCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *AuthCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AuthCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "authcache"),
	}
}

// Get retrieves a cached auth context. A miss is (nil, nil).
func (c *AuthCache) Get(ctx context.Context, keyHash string) (*apikey.AuthContext, error) {
	val, err := c.client.Get(ctx, keyPrefix+keyHash).Result()
	if err == redis.Nil {
		c.logger.Debug("auth cache miss")
		return nil, nil
	}
	if err != nil {
		c.logger.Error("auth cache error", "operation", "get", "error", err)
		return nil, fmt.Errorf("failed to get cached auth context: %w", err)
	}

	var auth apikey.AuthContext
	if err := json.Unmarshal([]byte(val), &auth); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached auth context: %w", err)
	}

	c.logger.Debug("auth cache hit", "tenant_id", auth.TenantID)
	return &auth, nil
}

// Set stores an auth context under the key hash for the cache TTL.
func (c *AuthCache) Set(ctx context.Context, keyHash string, auth *apikey.AuthContext) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth context: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+keyHash, data, c.ttl).Err(); err != nil {
		c.logger.Error("auth cache error", "operation", "set", "error", err)
		return fmt.Errorf("failed to set cached auth context: %w", err)
	}

	return nil
}

// Delete drops a cached auth context, if present. Called on key revocation.
func (c *AuthCache) Delete(ctx context.Context, keyHash string) error {
	if err := c.client.Del(ctx, keyPrefix+keyHash).Err(); err != nil {
		c.logger.Error("auth cache error", "operation", "delete", "error", err)
		return fmt.Errorf("failed to delete cached auth context: %w", err)
	}
	return nil
}
