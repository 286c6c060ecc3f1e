// internal/pkg/session/cache.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billhub-service/internal/domain/auth"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is the Redis fast path in front of the session table. The database
// stays the source of truth: every destroy path deletes the key explicitly,
// and any cache failure degrades to a DB lookup instead of failing the
// request.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCache(client *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) key(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Get returns the cached context for a token, or nil on miss or error.
func (c *Cache) Get(ctx context.Context, sessionID string) *auth.SessionContext {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("session cache read failed, falling back to db", zap.Error(err))
		}
		return nil
	}

	var sc auth.SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		c.logger.Warn("session cache entry corrupt, dropping", zap.Error(err))
		c.Delete(ctx, sessionID)
		return nil
	}
	if !sc.ExpiresAt.After(time.Now()) {
		c.Delete(ctx, sessionID)
		return nil
	}
	return &sc
}

// Put stores a validated context with a TTL matching the session expiry.
func (c *Cache) Put(ctx context.Context, sc *auth.SessionContext) {
	if c == nil || c.client == nil {
		return
	}

	ttl := time.Until(sc.ExpiresAt)
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(sc)
	if err != nil {
		c.logger.Warn("failed to marshal session context for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(sc.SessionID), data, ttl).Err(); err != nil {
		c.logger.Warn("session cache write failed", zap.Error(err))
	}
}

// Delete drops a cached session. Safe to call for uncached tokens.
func (c *Cache) Delete(ctx context.Context, sessionID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(sessionID)).Err(); err != nil {
		c.logger.Warn("session cache delete failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
