package ratelimiter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// admitQuery performs the whole read-reset-or-increment cycle as one atomic
// statement, so concurrent callers on the same key serialize through
// Postgres row locking and there is no race window at all. The post-write
// count decides admission.
const admitQuery = `
INSERT INTO rate_limit_counters (identity_key, action, count, window_reset_at)
VALUES ($1, $2, 1, $3)
ON CONFLICT (identity_key, action) DO UPDATE SET
	count = CASE
		WHEN rate_limit_counters.window_reset_at <= $4 THEN 1
		ELSE rate_limit_counters.count + 1
	END,
	window_reset_at = CASE
		WHEN rate_limit_counters.window_reset_at <= $4 THEN $3
		ELSE rate_limit_counters.window_reset_at
	END
RETURNING count, window_reset_at`

// PgxPool is the subset of *pgxpool.Pool the store uses, narrowed so tests
// can substitute a stub.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore counts admissions in a relational table via a single
// conditional upsert.
//
// It is the durable end of the two-tier design: linearizable per key, but a
// network round-trip slower than Redis. Operational errors here are
// terminal, there is nothing further to fall back to, so they are returned
// as plain errors, not ErrStoreUnavailable.
type PostgresStore struct {
	db     PgxPool
	logger *slog.Logger
	now    func() time.Time
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithPostgresStoreLogger sets the logger for internal operations.
func WithPostgresStoreLogger(logger *slog.Logger) PostgresStoreOption {
	return func(ps *PostgresStore) {
		if logger != nil {
			ps.logger = logger
		}
	}
}

// WithPostgresStoreClock replaces the time source, letting tests drive
// window boundaries deterministically.
func WithPostgresStoreClock(now func() time.Time) PostgresStoreOption {
	return func(ps *PostgresStore) {
		if now != nil {
			ps.now = now
		}
	}
}

// NewPostgresStore creates a Postgres-backed counter store. The
// rate_limit_counters table must exist; see the bundled migrations in
// integration/database/pg.
func NewPostgresStore(db PgxPool, opts ...PostgresStoreOption) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrNilClient
	}

	ps := &PostgresStore{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps, nil
}

// TryAdmit counts the request against the key's current window using one
// atomic conditional upsert and decides admission from the post-write count.
func (ps *PostgresStore) TryAdmit(ctx context.Context, key Key, quota Quota) (Result, error) {
	if quota.MaxRequests == 0 || quota.Window <= 0 {
		return Result{}, fmt.Errorf("%w: limit=%d window=%s", ErrInvalidQuota, quota.MaxRequests, quota.Window)
	}

	now := ps.now()
	freshResetAt := now.Add(quota.Window)

	var (
		count   int64
		resetAt time.Time
	)
	row := ps.db.QueryRow(ctx, admitQuery, key.IdentityKey(), key.Action, freshResetAt, now)
	if err := row.Scan(&count, &resetAt); err != nil {
		return Result{}, fmt.Errorf("upsert counter: %w", err)
	}

	if uint(count) > quota.MaxRequests {
		return deny(quota, resetAt, now), nil
	}
	return admit(quota, uint(count), resetAt), nil
}

// Healthcheck verifies database connectivity.
func (ps *PostgresStore) Healthcheck(ctx context.Context) error {
	if err := ps.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
