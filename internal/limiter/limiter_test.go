package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, "login"), mr
}

func TestRedisLimiterBlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	for i := 0; i < DefaultMaxAttempts; i++ {
		require.NoError(t, l.Reserve(ctx, "ana@example.com"))
	}

	assert.ErrorIs(t, l.Reserve(ctx, "ana@example.com"), ErrTooManyAttempts)
	assert.NoError(t, l.Reserve(ctx, "bob@example.com"))
}

func TestRedisLimiterSetsWindowOnFirstAttempt(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t)

	require.NoError(t, l.Reserve(ctx, "k"))
	assert.Equal(t, DefaultWindow, mr.TTL("att:login:k"))

	mr.FastForward(10 * time.Second)
	require.NoError(t, l.Reserve(ctx, "k"))
	assert.Equal(t, DefaultWindow-10*time.Second, mr.TTL("att:login:k"))
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t)

	for i := 0; i < DefaultMaxAttempts; i++ {
		require.NoError(t, l.Reserve(ctx, "k"))
	}
	require.ErrorIs(t, l.Reserve(ctx, "k"), ErrTooManyAttempts)

	mr.FastForward(DefaultWindow + time.Second)
	assert.NoError(t, l.Reserve(ctx, "k"))
}

func TestRedisLimiterReset(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t)

	for i := 0; i < DefaultMaxAttempts; i++ {
		require.NoError(t, l.Reserve(ctx, "k"))
	}
	require.NoError(t, l.Reset(ctx, "k"))
	assert.False(t, mr.Exists("att:login:k"))

	assert.NoError(t, l.Reserve(ctx, "k"))
}

func TestRedisLimiterConcurrentReservations(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	var allowed, throttled atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := l.Reserve(ctx, "k"); err {
			case nil:
				allowed.Add(1)
			case ErrTooManyAttempts:
				throttled.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(DefaultMaxAttempts), allowed.Load())
	assert.Equal(t, int64(100-DefaultMaxAttempts), throttled.Load())
}

func TestRedisLimiterPrefixesIsolateScopes(t *testing.T) {
	ctx := context.Background()
	login, mr := newTestLimiter(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mfa := NewRedisLimiter(client, "mfa").WithLimits(1, time.Minute)

	require.NoError(t, mfa.Reserve(ctx, "k"))
	assert.ErrorIs(t, mfa.Reserve(ctx, "k"), ErrTooManyAttempts)
	assert.NoError(t, login.Reserve(ctx, "k"))
}

func TestRedisLimiterUnavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t)
	mr.Close()

	assert.ErrorIs(t, l.Reserve(ctx, "k"), ErrUnavailable)
	assert.ErrorIs(t, l.Reset(ctx, "k"), ErrUnavailable)
}

func TestNoopNeverLimits(t *testing.T) {
	var l Limiter = Noop{}
	for i := 0; i < 10; i++ {
		assert.NoError(t, l.Reserve(context.Background(), "k"))
	}
}
