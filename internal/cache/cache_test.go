package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10 * time.Second)

	_, hit := c.Get(ctx, "order", "k1")
	assert.False(t, hit)

	c.Set(ctx, "order", "k1", []byte("v1"))

	val, hit := c.Get(ctx, "order", "k1")
	require.True(t, hit)
	assert.Equal(t, []byte("v1"), val)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10 * time.Second)
	c.Set(ctx, "order", "k1", []byte("v1"))

	// Advance the clock past the TTL instead of sleeping.
	c.now = func() time.Time { return time.Now().Add(11 * time.Second) }

	_, hit := c.Get(ctx, "order", "k1")
	assert.False(t, hit)
}

func TestMemoryInvalidateKindIsScoped(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10 * time.Second)
	c.Set(ctx, "order", "k1", []byte("v1"))
	c.Set(ctx, "license", "k2", []byte("v2"))

	c.InvalidateKind(ctx, "order")

	_, hit := c.Get(ctx, "order", "k1")
	assert.False(t, hit, "invalidated kind must miss")

	val, hit := c.Get(ctx, "license", "k2")
	require.True(t, hit, "other kinds must be untouched")
	assert.Equal(t, []byte("v2"), val)
}

func TestMemorySetOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10 * time.Second)
	c.Set(ctx, "order", "k1", []byte("old"))
	c.Set(ctx, "order", "k1", []byte("new"))

	val, hit := c.Get(ctx, "order", "k1")
	require.True(t, hit)
	assert.Equal(t, []byte("new"), val)
}
