package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mwl-dev/lemongate/internal/apperr"
)

// Well-known secret names.
const (
	LemonSigningSecret  = "LEMONSQUEEZY_SIGNING_SECRET"
	LemonAPIKey         = "LEMONSQUEEZY_API_KEY"
	GoogleOAuthClientID = "GOOGLE_OAUTH_CLIENT_ID"
)

// Store reads named secrets. A missing or empty value is a configuration
// error, never a soft failure; callers terminate the request on it.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// RedisStore reads secrets from Redis on every call, so a rotated secret
// takes effect immediately. Callers needing a stable value for one
// cryptographic operation read it once per operation.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	val, err := s.client.Get(ctx, name).Result()
	if err != nil && err != redis.Nil {
		return "", apperr.Upstream(fmt.Sprintf("failed to read secret %q", name), err)
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return "", apperr.Configuration(fmt.Sprintf("secret %q is not configured", name))
	}
	return val, nil
}

// StaticStore serves secrets from a fixed map. Used in tests and as a
// bootstrap source when no Redis is available.
type StaticStore map[string]string

func (s StaticStore) Get(_ context.Context, name string) (string, error) {
	val := strings.TrimSpace(s[name])
	if val == "" {
		return "", apperr.Configuration(fmt.Sprintf("secret %q is not configured", name))
	}
	return val, nil
}
