// Package cache keeps last-known-good copies of feed reads in Redis so a
// failed read can fall back to a stale list instead of an empty one.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/internal/observability"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to addr (host:port or redis:// URL). It returns nil when
// addr is empty or the server is unreachable; callers continue without a cache.
func InitRedis(addr string) *redis.Client {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			observability.GlobalLogger.Warn("invalid REDIS_URL, continuing without cache",
				slog.String("redis_url", addr), slog.String("error", err.Error()))
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		observability.GlobalLogger.Warn("redis unreachable, continuing without cache", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	observability.GlobalLogger.Info("redis connected")
	return client
}

// ReadCache stores JSON snapshots of successful reads. A nil client makes
// every operation a no-op.
type ReadCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewReadCache wraps client. ttl of zero keeps entries without expiry.
func NewReadCache(client *redis.Client, ttl time.Duration) *ReadCache {
	return &ReadCache{client: client, prefix: "agora:", ttl: ttl}
}

// Enabled reports whether a Redis client is attached.
func (c *ReadCache) Enabled() bool {
	return c != nil && c.client != nil
}

// FetchWithFallback calls fetch, which must write into dest. On success dest
// is stored under key. When fetch fails and an earlier copy exists, dest is
// filled from it and stale is true; the fetch error is still returned so the
// caller can log it.
func (c *ReadCache) FetchWithFallback(ctx context.Context, key string, dest any, fetch func() error) (stale bool, err error) {
	if !c.Enabled() {
		return false, fetch()
	}

	fetchErr := fetch()
	if fetchErr == nil {
		// best-effort
		_ = SetJSON(ctx, c.client, c.prefix+key, dest, c.ttl)
		return false, nil
	}

	found, err := GetJSON(ctx, c.client, c.prefix+key, dest)
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.GlobalLogger.WarnContext(ctx, "read cache lookup failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return found, fetchErr
}

// Forget drops the entry for key so a later failed read cannot serve it.
func (c *ReadCache) Forget(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}
