package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, Config{Name: "api", RateLimit: RateLimit{Window: time.Minute, Max: max}}), mr
}

func TestAllowWithinWindow(t *testing.T) {
	l, _ := newLimiter(t, 3)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "key-a")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := l.Allow(ctx, "key-a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other identifiers have their own window.
	ok, err = l.Allow(ctx, "key-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowSlides(t *testing.T) {
	l, _ := newLimiter(t, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(30 * time.Second)
	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(61 * time.Second)
	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowSetsExpiry(t *testing.T) {
	l, mr := newLimiter(t, 5)
	_, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, mr.TTL("rate_limit:api:k"))
}

func TestAllowRedisDown(t *testing.T) {
	l, mr := newLimiter(t, 5)
	mr.Close()
	_, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
}
