// Package ratelimit is a redis sliding-window limiter keyed by caller.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window time.Duration // e.g., 1 minute
	Max    int           // max requests per window
}

type Config struct {
	Name      string
	RateLimit RateLimit
}

// Limiter counts requests per identifier in a sorted set scored by arrival
// time in nanoseconds.
type Limiter struct {
	redis  redis.Cmdable
	config Config
	now    func() time.Time
}

func NewLimiter(client redis.Cmdable, config Config) *Limiter {
	return &Limiter{
		redis:  client,
		config: config,
		now:    time.Now,
	}
}

// Allow records one request for identifier and reports whether it fits in
// the window. Rejected requests count toward the window too.
func (l *Limiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", l.config.Name, identifier)

	pipe := l.redis.TxPipeline()
	now := l.now().UnixNano()
	windowStart := now - l.config.RateLimit.Window.Nanoseconds()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current window
	card := pipe.ZCard(ctx, key)

	// Add new entry; members are unique so concurrent requests in the same
	// nanosecond are all counted
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: uuid.NewString()})

	// Set expiration
	pipe.Expire(ctx, key, l.config.RateLimit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	return card.Val() < int64(l.config.RateLimit.Max), nil
}
