package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// memoryCounter is one key's fixed-window state. touched drives the stale
// sweep; an expired counter that keeps being hit is never stale.
type memoryCounter struct {
	count   uint
	resetAt time.Time
	touched time.Time
}

// MemoryStore implements Store with in-process counters. It serves tests and
// single-node deployments; distributed setups use RedisStore/PostgresStore.
// Counting under the mutex is exact, so unlike the Redis path there is no
// over-admission slack under concurrency.
//
// Expired counters are swept by a background goroutine driven by Start (or
// Run for errgroup wiring). Sweeping only reclaims memory: an expired counter
// decides admission exactly like an absent one.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter

	cleanupInterval time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	sweeps    sync.WaitGroup

	created atomic.Int64
	removed atomic.Int64
}

// MemoryStoreStats is a point-in-time snapshot for monitoring.
type MemoryStoreStats struct {
	CountersCreated int64
	CountersRemoved int64
	ActiveCounters  int
	IsRunning       bool
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale counters are swept. It also sets
// the staleness threshold: a counter is removed once its window has expired
// and it has not been touched for at least one interval.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryStoreShutdownTimeout bounds how long Stop waits for an in-flight
// sweep.
func WithMemoryStoreShutdownTimeout(timeout time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if timeout > 0 {
			ms.shutdownTimeout = timeout
		}
	}
}

// WithMemoryStoreLogger sets the logger for lifecycle events.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// WithMemoryStoreClock replaces the time source, letting tests drive window
// boundaries deterministically.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates an in-memory store. The store counts immediately;
// Start only adds the background sweep.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		counters:        make(map[string]*memoryCounter),
		cleanupInterval: 5 * time.Minute,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// TryAdmit counts the request against the key's current window. A counter
// with an expired window restarts at one.
func (ms *MemoryStore) TryAdmit(ctx context.Context, key Key, quota Quota) (Result, error) {
	if quota.MaxRequests == 0 || quota.Window <= 0 {
		return Result{}, fmt.Errorf("%w: limit=%d window=%s", ErrInvalidQuota, quota.MaxRequests, quota.Window)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()

	c := ms.counters[key.String()]
	if c == nil {
		c = &memoryCounter{}
		ms.counters[key.String()] = c
		ms.created.Add(1)
	}

	if c.count == 0 || !now.Before(c.resetAt) {
		c.count = 1
		c.resetAt = now.Add(quota.Window)
	} else {
		c.count++
	}
	c.touched = now

	if c.count > quota.MaxRequests {
		return deny(quota, c.resetAt, now), nil
	}
	return admit(quota, c.count, c.resetAt), nil
}

// Reset drops the counter for a key, for administrative overrides.
func (ms *MemoryStore) Reset(ctx context.Context, key Key) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.counters, key.String())
	return nil
}

// Start runs the background sweep until ctx is cancelled or Stop is called.
// It blocks; run it in its own goroutine or use Run with an errgroup.
func (ms *MemoryStore) Start(ctx context.Context) error {
	if ms.cleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %s", ms.cleanupInterval)
	}

	ms.lifecycle.Lock()
	if ms.cancel != nil {
		ms.lifecycle.Unlock()
		return errors.New("memory store already started")
	}
	ctx, ms.cancel = context.WithCancel(ctx)
	ms.lifecycle.Unlock()

	ms.logger.InfoContext(ctx, "memory store sweep started",
		slog.Duration("interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ms.logger.InfoContext(context.Background(), "memory store sweep stopped")
			return ctx.Err()
		case <-ticker.C:
			ms.trackedSweep()
		}
	}
}

// Stop cancels the sweep loop and waits up to the shutdown timeout for an
// in-flight sweep to finish.
func (ms *MemoryStore) Stop() error {
	ms.lifecycle.Lock()
	cancel := ms.cancel
	ms.cancel = nil
	ms.lifecycle.Unlock()

	if cancel == nil {
		return errors.New("memory store not started")
	}
	cancel()

	done := make(chan struct{})
	go func() {
		ms.sweeps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(ms.shutdownTimeout):
		ms.logger.WarnContext(context.Background(), "memory store shutdown timed out",
			slog.Duration("timeout", ms.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", ms.shutdownTimeout)
	}
}

// Run adapts the Start/Stop pair to the errgroup convention: the returned
// function blocks until ctx is cancelled, shuts down cleanly, and treats
// cancellation as a normal exit.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		started := make(chan error, 1)
		go func() { started <- ms.Start(ctx) }()

		select {
		case <-ctx.Done():
			_ = ms.Stop()
			<-started
			return nil
		case err := <-started:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// trackedSweep registers the sweep with the WaitGroup so Stop can wait for
// it, skipping the registration race when Stop already ran.
func (ms *MemoryStore) trackedSweep() {
	ms.lifecycle.Lock()
	if ms.cancel == nil {
		ms.lifecycle.Unlock()
		return
	}
	ms.sweeps.Add(1)
	ms.lifecycle.Unlock()
	defer ms.sweeps.Done()

	ms.sweep()
}

// sweep removes counters whose window expired and that have not been touched
// for a full cleanup interval.
func (ms *MemoryStore) sweep() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	var removed int64
	for key, c := range ms.counters {
		if now.After(c.resetAt) && now.Sub(c.touched) > ms.cleanupInterval {
			delete(ms.counters, key)
			removed++
		}
	}
	if removed > 0 {
		ms.removed.Add(removed)
	}
}

// Stats returns a monitoring snapshot. Safe to call from any goroutine.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.lifecycle.Lock()
	running := ms.cancel != nil
	ms.lifecycle.Unlock()

	ms.mu.Lock()
	active := len(ms.counters)
	ms.mu.Unlock()

	return MemoryStoreStats{
		CountersCreated: ms.created.Load(),
		CountersRemoved: ms.removed.Load(),
		ActiveCounters:  active,
		IsRunning:       running,
	}
}

// Healthcheck reports unhealthy when the sweep is configured but not
// running, which in a long-lived process means unbounded counter growth.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	if ms.cleanupInterval > 0 && !ms.Stats().IsRunning {
		return errors.New("counter sweep is configured but not running")
	}
	return nil
}
