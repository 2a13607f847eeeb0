// Package limiter throttles repeated failed credential attempts.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = time.Minute
)

var (
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrUnavailable     = errors.New("attempt limiter unavailable")
)

// Limiter counts attempts per key. Reserve claims an attempt before the
// credential is checked and fails once more than the allowed number were
// claimed inside the window; Reset clears the count after a success.
type Limiter interface {
	Reserve(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// reserveScript increments the counter and starts the window on the first
// hit in one step, so a counter never exists without a TTL.
var reserveScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter keeps a fixed-window counter per key. The window starts at
// the first attempt and is not extended by later ones.
type RedisLimiter struct {
	redis       *redis.Client
	prefix      string
	maxAttempts int64
	window      time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		redis:       client,
		prefix:      prefix,
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
	}
}

// WithLimits returns a copy using maxAttempts and window.
func (l *RedisLimiter) WithLimits(maxAttempts int, window time.Duration) *RedisLimiter {
	clone := *l
	clone.maxAttempts = int64(maxAttempts)
	clone.window = window
	return &clone
}

func (l *RedisLimiter) key(key string) string {
	return "att:" + l.prefix + ":" + key
}

// Reserve counts one attempt. Concurrent callers each get a distinct count,
// so at most maxAttempts of them are let through per window.
func (l *RedisLimiter) Reserve(ctx context.Context, key string) error {
	count, err := reserveScript.Run(ctx, l.redis, []string{l.key(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count > l.maxAttempts {
		return ErrTooManyAttempts
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Noop never limits. It is used when no redis is configured.
type Noop struct{}

func (Noop) Reserve(context.Context, string) error { return nil }
func (Noop) Reset(context.Context, string) error   { return nil }

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
