package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitkit/limitkit/pkg/ratelimiter"
)

func newRedisStore(t *testing.T, clock *fakeClock) (*ratelimiter.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := []ratelimiter.RedisStoreOption{}
	if clock != nil {
		opts = append(opts, ratelimiter.WithRedisStoreClock(clock.Now))
	}

	store, err := ratelimiter.NewRedisStore(client, opts...)
	require.NoError(t, err)
	return store, mr
}

func testKey(action string) ratelimiter.Key {
	return ratelimiter.Key{
		Tier:          "anon",
		IdentityKind:  "ip",
		IdentityValue: "203.0.113.5",
		Action:        action,
	}
}

func TestNewRedisStore(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewRedisStore(nil)
	assert.ErrorIs(t, err, ratelimiter.ErrNilClient)
}

func TestRedisStore_TryAdmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	quota := ratelimiter.Quota{MaxRequests: 3, Window: time.Minute}

	t.Run("admits up to the limit then denies", func(t *testing.T) {
		t.Parallel()
		store, _ := newRedisStore(t, nil)
		key := testKey("generate")

		for i := 0; i < 3; i++ {
			result, err := store.TryAdmit(ctx, key, quota)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "call %d should be admitted", i+1)
			assert.Equal(t, uint(3), result.Limit)
			assert.Equal(t, uint(2-i), result.Remaining)
		}

		result, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Positive(t, result.RetryAfter)
	})

	t.Run("keys do not interfere", func(t *testing.T) {
		t.Parallel()
		store, _ := newRedisStore(t, nil)

		for iter := 0; iter < 3; iter++ {
			_, err := store.TryAdmit(ctx, testKey("generate"), quota)
			require.NoError(t, err)
		}

		result, err := store.TryAdmit(ctx, testKey("analyze"), quota)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "a different action counts in its own window")
	})

	t.Run("resets the window after expiry", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		store, _ := newRedisStore(t, clock)
		key := testKey("generate")

		for iter := 0; iter < 4; iter++ {
			_, err := store.TryAdmit(ctx, key, quota)
			require.NoError(t, err)
		}

		clock.Advance(61 * time.Second)

		result, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "first call after expiry opens a fresh window")
		assert.Equal(t, uint(2), result.Remaining, "fresh window counts from 1")
	})

	t.Run("denied state persists with stable retry-after", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		store, _ := newRedisStore(t, clock)
		key := testKey("generate")

		for iter := 0; iter < 3; iter++ {
			_, err := store.TryAdmit(ctx, key, quota)
			require.NoError(t, err)
		}

		clock.Advance(10 * time.Second)

		first, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)
		second, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)

		assert.False(t, first.Allowed)
		assert.False(t, second.Allowed)
		assert.Equal(t, 50*time.Second, first.RetryAfter)
		assert.Equal(t, first.RetryAfter, second.RetryAfter,
			"repeated denials in the same window report the same retry-after")
	})

	t.Run("treats malformed payload as fresh window", func(t *testing.T) {
		t.Parallel()
		store, mr := newRedisStore(t, nil)
		key := testKey("generate")

		require.NoError(t, mr.Set("ratelimit:"+key.String(), "{not json"))

		result, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, uint(2), result.Remaining)
	})

	t.Run("reports unreachable store as unavailable", func(t *testing.T) {
		t.Parallel()
		store, mr := newRedisStore(t, nil)
		mr.Close()

		_, err := store.TryAdmit(ctx, testKey("generate"), quota)
		assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)
	})

	t.Run("rejects invalid quota", func(t *testing.T) {
		t.Parallel()
		store, _ := newRedisStore(t, nil)

		_, err := store.TryAdmit(ctx, testKey("generate"), ratelimiter.Quota{})
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidQuota)
	})

	t.Run("aligns ttl to the window end", func(t *testing.T) {
		t.Parallel()
		store, mr := newRedisStore(t, nil)
		key := testKey("generate")

		_, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)

		ttl := mr.TTL("ratelimit:" + key.String())
		assert.Greater(t, ttl, 50*time.Second)
		assert.LessOrEqual(t, ttl, time.Minute)
	})
}

func TestRedisStore_Healthcheck(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t, nil)
	assert.NoError(t, store.Healthcheck(context.Background()))

	mr.Close()
	assert.ErrorIs(t, store.Healthcheck(context.Background()), ratelimiter.ErrStoreUnavailable)
}

func TestRedisStore_ConcreteScenario(t *testing.T) {
	t.Parallel()

	// quota {3, 60s}, identity Ip(203.0.113.5), action "generate":
	// calls 1-3 at t=0 admit, call 4 at t=10s denies with retry-after 50s,
	// call 5 at t=61s admits in a fresh window.
	ctx := context.Background()
	quota := ratelimiter.Quota{MaxRequests: 3, Window: 60 * time.Second}
	clock := newFakeClock()
	store, _ := newRedisStore(t, clock)
	key := testKey("generate")

	for i := 0; i < 3; i++ {
		result, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)
		require.True(t, result.Allowed, "call %d at t=0s", i+1)
	}

	clock.Advance(10 * time.Second)
	result, err := store.TryAdmit(ctx, key, quota)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "call 4 at t=10s")
	assert.Equal(t, 50*time.Second, result.RetryAfter)

	clock.Advance(51 * time.Second)
	result, err = store.TryAdmit(ctx, key, quota)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "call 5 at t=61s opens a new window")
	assert.Equal(t, uint(2), result.Remaining)
}
