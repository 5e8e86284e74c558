package limiter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/limitkit/limitkit/core/identity"
	"github.com/limitkit/limitkit/core/quota"
	"github.com/limitkit/limitkit/pkg/ratelimiter"
)

// Config tunes the engine's failure handling. Zero values fall back to the
// defaults below, so an empty Config is valid.
type Config struct {
	// PrimaryTimeout bounds one primary store attempt.
	PrimaryTimeout time.Duration `env:"RATELIMIT_PRIMARY_TIMEOUT" envDefault:"2s"`
	// FallbackTimeout bounds one fallback store attempt.
	FallbackTimeout time.Duration `env:"RATELIMIT_FALLBACK_TIMEOUT" envDefault:"2s"`
	// BreakerFailures is the consecutive primary failures that trip the
	// circuit breaker.
	BreakerFailures uint32 `env:"RATELIMIT_BREAKER_FAILURES" envDefault:"5"`
	// BreakerCooldown is how long the breaker stays open before probing the
	// primary store again.
	BreakerCooldown time.Duration `env:"RATELIMIT_BREAKER_COOLDOWN" envDefault:"30s"`
}

func (c Config) withDefaults() Config {
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = 2 * time.Second
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = 2 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

// failClosedRetryAfter caps the denial when even the quota is unknown, i.e.
// an unregistered action slipped past startup validation.
const failClosedRetryAfter = time.Minute

// Engine decides, per inbound request, whether the caller may proceed.
//
// It resolves the caller identity and tier, looks up the quota, and runs the
// two-tier store state machine: try the primary, fall back to the durable
// store when the primary is unavailable, and fail closed when both are gone.
// The engine holds no mutable counter state of its own; all counting lives in
// the stores, so any number of request goroutines may call Check concurrently.
type Engine struct {
	table    *quota.Table
	primary  ratelimiter.Store
	fallback ratelimiter.Store
	breaker  *gobreaker.CircuitBreaker[ratelimiter.Result]
	logger   *slog.Logger
	cfg      Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithFallbackStore sets the durable store consulted when the primary is
// unavailable. Without one, a primary failure fails closed immediately.
func WithFallbackStore(store ratelimiter.Store) Option {
	return func(e *Engine) {
		e.fallback = store
	}
}

// WithLogger sets the logger for store failures and fail-closed decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfig overrides the default timeouts and breaker thresholds.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg.withDefaults()
	}
}

// New creates a rate-limiting engine over the given quota table and primary
// store.
func New(table *quota.Table, primary ratelimiter.Store, opts ...Option) (*Engine, error) {
	if table == nil {
		return nil, ErrNilTable
	}
	if primary == nil {
		return nil, ErrNilStore
	}

	e := &Engine{
		table:   table,
		primary: primary,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:     Config{}.withDefaults(),
	}
	for _, opt := range opts {
		opt(e)
	}

	// The breaker turns a dead primary into a cheap, immediate fallback
	// instead of a timeout paid on every request. Logical denials are not
	// errors and never trip it.
	e.breaker = gobreaker.NewCircuitBreaker[ratelimiter.Result](gobreaker.Settings{
		Name:    "ratelimit-primary",
		Timeout: e.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= e.cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.WarnContext(context.Background(), "primary store breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return e, nil
}

// Check decides whether the caller behind r may perform action.
//
// The decision is always final at this boundary: infrastructure failures are
// absorbed into a conservative denial (fail closed), never returned to the
// caller. Callers must treat a denial as a hard stop and surface RetryAfter
// to the client instead of retrying internally.
func (e *Engine) Check(ctx context.Context, r *http.Request, principal *identity.Principal, action quota.Action) ratelimiter.Result {
	tier := identity.TierOf(principal)
	id := identity.Resolve(r, principal)

	cfg, err := e.table.Resolve(action, tier)
	if err != nil {
		// Unregistered action: a programming defect that NewTable exists to
		// catch at startup. Deny rather than admit unmetered traffic.
		e.logger.ErrorContext(ctx, "quota resolution failed, failing closed",
			slog.String("action", string(action)),
			slog.String("tier", string(tier)),
			slog.String("error", err.Error()))
		return ratelimiter.Result{RetryAfter: failClosedRetryAfter}
	}

	q := ratelimiter.Quota{MaxRequests: cfg.MaxRequests, Window: cfg.Window}
	key := ratelimiter.Key{
		Tier:          string(tier),
		IdentityKind:  string(id.Kind),
		IdentityValue: id.Value,
		Action:        string(action),
	}

	result, err := e.breaker.Execute(func() (ratelimiter.Result, error) {
		return e.tryStore(ctx, e.primary, key, q, e.cfg.PrimaryTimeout)
	})
	if err == nil {
		return result
	}

	// Every primary error (unavailable store, timeout, open breaker) takes
	// the same path: the fallback gets one attempt with the identical
	// logical key.
	e.logger.WarnContext(ctx, "primary store unavailable, falling back",
		slog.String("key", key.String()),
		slog.String("error", err.Error()))

	if e.fallback != nil {
		result, err = e.tryStore(ctx, e.fallback, key, q, e.cfg.FallbackTimeout)
		if err == nil {
			return result
		}
		e.logger.ErrorContext(ctx, "fallback store failed, failing closed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
	} else {
		e.logger.ErrorContext(ctx, "no fallback store configured, failing closed",
			slog.String("key", key.String()))
	}

	// Both stores gone: abuse prevention beats availability. Deny for a
	// full window without mutating any state.
	return ratelimiter.Result{
		Limit:      q.MaxRequests,
		ResetAt:    time.Now().Add(q.Window),
		RetryAfter: q.Window,
	}
}

// tryStore issues one bounded store attempt.
//
// The attempt is detached from the caller's cancellation: an aborted request
// still counts, and force-cancelling a half-finished write would leave the
// counter inconsistent. The per-attempt timeout alone bounds the call.
func (e *Engine) tryStore(ctx context.Context, store ratelimiter.Store, key ratelimiter.Key, q ratelimiter.Quota, timeout time.Duration) (ratelimiter.Result, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return store.TryAdmit(ctx, key, q)
}

// Healthcheck reports the engine as healthy while at least one store can
// serve admissions, mirroring the degraded-but-available semantics of Check.
func (e *Engine) Healthcheck(ctx context.Context) error {
	primaryErr := e.primary.Healthcheck(ctx)
	if primaryErr == nil {
		return nil
	}
	if e.fallback != nil {
		if err := e.fallback.Healthcheck(ctx); err == nil {
			return nil
		}
	}
	return primaryErr
}
