package throttle_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nasermirzaei89/forumgw/throttle"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (*throttle.Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return throttle.NewLimiter(rdb), mr
}

func TestLimiter_Hit(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newLimiter(t)

	for i := range 3 {
		allowed, err := limiter.Hit(ctx, "ip:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d", i+1)
	}

	allowed, err := limiter.Hit(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Hit(ctx, "ip:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(time.Minute + time.Second)

	allowed, err = limiter.Hit(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_Hit_RedisDown(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newLimiter(t)

	mr.Close()

	_, err := limiter.Hit(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.Error(t, err)
}

func TestSpamGuard_Allow(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newLimiter(t)
	guard := throttle.NewSpamGuard(limiter, throttle.DefaultSpamRepeats, throttle.DefaultSpamWindow)

	for range throttle.DefaultSpamRepeats {
		allowed, err := guard.Allow(ctx, 1, "first!")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := guard.Allow(ctx, 1, "first!")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = guard.Allow(ctx, 1, "something else")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = guard.Allow(ctx, 2, "first!")
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(throttle.DefaultSpamWindow)

	allowed, err = guard.Allow(ctx, 1, "first!")
	require.NoError(t, err)
	assert.True(t, allowed)
}
