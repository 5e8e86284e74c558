package ratelimiter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitkit/limitkit/pkg/ratelimiter"
)

// stubRow feeds canned upsert results into PostgresStore.
type stubRow struct {
	count   int64
	resetAt time.Time
	err     error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.count
	*(dest[1].(*time.Time)) = r.resetAt
	return nil
}

// stubPool records the last upsert arguments and returns a scripted row.
type stubPool struct {
	row      stubRow
	pingErr  error
	lastSQL  string
	lastArgs []any
}

func (p *stubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	p.lastSQL = sql
	p.lastArgs = args
	return p.row
}

func (p *stubPool) Ping(ctx context.Context) error { return p.pingErr }

func TestNewPostgresStore(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewPostgresStore(nil)
	assert.ErrorIs(t, err, ratelimiter.ErrNilClient)
}

func TestPostgresStore_TryAdmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	quota := ratelimiter.Quota{MaxRequests: 3, Window: time.Minute}
	key := testKey("generate")

	t.Run("admits when post-write count fits the quota", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		pool := &stubPool{row: stubRow{count: 2, resetAt: clock.Now().Add(30 * time.Second)}}
		store, err := ratelimiter.NewPostgresStore(pool, ratelimiter.WithPostgresStoreClock(clock.Now))
		require.NoError(t, err)

		result, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, uint(1), result.Remaining)
	})

	t.Run("denies when post-write count exceeds the quota", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		pool := &stubPool{row: stubRow{count: 4, resetAt: clock.Now().Add(50 * time.Second)}}
		store, err := ratelimiter.NewPostgresStore(pool, ratelimiter.WithPostgresStoreClock(clock.Now))
		require.NoError(t, err)

		result, err := store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 50*time.Second, result.RetryAfter)
	})

	t.Run("passes identity key and action separately", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		pool := &stubPool{row: stubRow{count: 1, resetAt: clock.Now().Add(time.Minute)}}
		store, err := ratelimiter.NewPostgresStore(pool, ratelimiter.WithPostgresStoreClock(clock.Now))
		require.NoError(t, err)

		_, err = store.TryAdmit(ctx, key, quota)
		require.NoError(t, err)

		require.Len(t, pool.lastArgs, 4)
		assert.Equal(t, key.IdentityKey(), pool.lastArgs[0])
		assert.Equal(t, "generate", pool.lastArgs[1])
		assert.Equal(t, clock.Now().Add(time.Minute), pool.lastArgs[2])
		assert.Equal(t, clock.Now(), pool.lastArgs[3])
	})

	t.Run("propagates operational errors as terminal", func(t *testing.T) {
		t.Parallel()
		dbErr := errors.New("connection refused")
		pool := &stubPool{row: stubRow{err: dbErr}}
		store, err := ratelimiter.NewPostgresStore(pool)
		require.NoError(t, err)

		_, err = store.TryAdmit(ctx, key, quota)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ratelimiter.ErrStoreUnavailable,
			"fallback store errors must not look recoverable")
	})

	t.Run("rejects invalid quota", func(t *testing.T) {
		t.Parallel()
		store, err := ratelimiter.NewPostgresStore(&stubPool{})
		require.NoError(t, err)

		_, err = store.TryAdmit(ctx, key, ratelimiter.Quota{MaxRequests: 1})
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidQuota)
	})
}

func TestPostgresStore_Healthcheck(t *testing.T) {
	t.Parallel()

	healthy, err := ratelimiter.NewPostgresStore(&stubPool{})
	require.NoError(t, err)
	assert.NoError(t, healthy.Healthcheck(context.Background()))

	down, err := ratelimiter.NewPostgresStore(&stubPool{pingErr: errors.New("down")})
	require.NoError(t, err)
	assert.Error(t, down.Healthcheck(context.Background()))
}
