package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared-cache implementation for multi-process
// deployments. Instead of scanning keys on invalidation, each kind
// carries a version counter baked into every cache key; InvalidateKind
// bumps the counter, orphaning all prior entries at once. Orphans age
// out through the TTL. Concurrent bumps are last-write-wins, which only
// ever narrows cache state, so a race costs a redundant scan, never a
// stale hit.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, kind, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.entryKey(ctx, kind, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("cache read failed", "kind", kind, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, kind, key string, value []byte) {
	if err := r.client.Set(ctx, r.entryKey(ctx, kind, key), value, r.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "kind", kind, "error", err)
	}
}

func (r *Redis) InvalidateKind(ctx context.Context, kind string) {
	if err := r.client.Incr(ctx, r.versionKey(kind)).Err(); err != nil {
		slog.Warn("cache invalidation failed", "kind", kind, "error", err)
	}
}

func (r *Redis) entryKey(ctx context.Context, kind, key string) string {
	version, err := r.client.Get(ctx, r.versionKey(kind)).Int64()
	if err != nil && err != redis.Nil {
		// Unknown version: pick one no writer has used, forcing a miss.
		version = -1
	}
	return "cache:" + kind + ":v" + strconv.FormatInt(version, 10) + ":" + key
}

func (r *Redis) versionKey(kind string) string {
	return "cachever:" + kind
}
