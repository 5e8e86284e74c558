package ratelimiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterRecord is the JSON payload stored per key. A payload that fails to
// unmarshal is treated as absent, never as a hard failure.
type counterRecord struct {
	Count         uint  `json:"count"`
	WindowResetAt int64 `json:"window_reset_at"` // unix milliseconds
}

// RedisStore counts admissions in Redis with plain GET/SET and a TTL aligned
// to the window end.
//
// The read-modify-write is deliberately not atomic: concurrent callers may
// each increment off a slightly stale base, so a burst of N concurrent
// requests can admit at most N beyond the already-committed count before
// every later call observes the exceeded state. The only error direction is
// over-counting (denying slightly early), never under-counting, which keeps
// the conservative bias the engine relies on. The TTL is storage hygiene
// only; correctness comes from the stored reset timestamp.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisStorePrefix overrides the key prefix (default "ratelimit:").
func WithRedisStorePrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.prefix = prefix
		}
	}
}

// WithRedisStoreLogger sets the logger for internal operations.
func WithRedisStoreLogger(logger *slog.Logger) RedisStoreOption {
	return func(rs *RedisStore) {
		if logger != nil {
			rs.logger = logger
		}
	}
}

// WithRedisStoreClock replaces the time source, letting tests drive window
// boundaries deterministically.
func WithRedisStoreClock(now func() time.Time) RedisStoreOption {
	return func(rs *RedisStore) {
		if now != nil {
			rs.now = now
		}
	}
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	rs := &RedisStore{
		client: client,
		prefix: "ratelimit:",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs, nil
}

// TryAdmit counts the request against the key's current window.
//
// Infrastructure failures (GET or SET errors other than a missing key) are
// reported as ErrStoreUnavailable so the caller can fall back to the durable
// store. A logical denial is not an error: the exceeded record is still
// written so later calls inside the window deny cheaply with a stable
// RetryAfter.
func (rs *RedisStore) TryAdmit(ctx context.Context, key Key, quota Quota) (Result, error) {
	if quota.MaxRequests == 0 || quota.Window <= 0 {
		return Result{}, fmt.Errorf("%w: limit=%d window=%s", ErrInvalidQuota, quota.MaxRequests, quota.Window)
	}

	storageKey := rs.prefix + key.String()
	now := rs.now()

	var rec counterRecord
	raw, err := rs.client.Get(ctx, storageKey).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// No record: fresh window below.
	case err != nil:
		return Result{}, fmt.Errorf("%w: get: %v", ErrStoreUnavailable, err)
	default:
		if err := json.Unmarshal(raw, &rec); err != nil {
			rs.logger.WarnContext(ctx, "malformed counter payload, starting fresh window",
				slog.String("key", key.String()),
				slog.String("error", err.Error()))
			rec = counterRecord{}
		}
	}

	resetAt := time.UnixMilli(rec.WindowResetAt)
	if rec.Count == 0 || !now.Before(resetAt) {
		rec.Count = 1
		resetAt = now.Add(quota.Window)
		rec.WindowResetAt = resetAt.UnixMilli()
	} else {
		rec.Count++
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return Result{}, fmt.Errorf("%w: marshal: %v", ErrStoreUnavailable, err)
	}
	if err := rs.client.Set(ctx, storageKey, payload, resetAt.Sub(now)).Err(); err != nil {
		return Result{}, fmt.Errorf("%w: set: %v", ErrStoreUnavailable, err)
	}

	if rec.Count > quota.MaxRequests {
		return deny(quota, resetAt, now), nil
	}
	return admit(quota, rec.Count, resetAt), nil
}

// Healthcheck verifies Redis connectivity with a ping.
func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrStoreUnavailable, err)
	}
	return nil
}
