package ratelimiter

import (
	"context"
	"strings"
	"time"
)

// keySchemaVersion prefixes every rendered key so the on-store layout can
// evolve without old records being misread.
const keySchemaVersion = "v1"

// keySeparator joins key fields. The unit separator cannot appear in any
// field: tiers and identity kinds are enumerations, identity values are
// validated addresses, hex digests, or session-layer user ids, and actions
// are registered literals. That makes the rendered key injective.
const keySeparator = "\x1f"

// Key identifies one logical counter: the (tier, identity, action) triple
// every admitted request is counted under. Both stores must agree on the
// same logical key, whatever physical layout they use.
type Key struct {
	Tier          string
	IdentityKind  string
	IdentityValue string
	Action        string
}

// String renders the full composite key. Two distinct triples never render
// to the same string and the same triple always renders identically.
func (k Key) String() string {
	return strings.Join([]string{
		keySchemaVersion,
		k.Tier,
		k.IdentityKind,
		k.IdentityValue,
		k.Action,
	}, keySeparator)
}

// IdentityKey renders the identity part without the action, for stores that
// keep the action in its own column.
func (k Key) IdentityKey() string {
	return strings.Join([]string{
		keySchemaVersion,
		k.Tier,
		k.IdentityKind,
		k.IdentityValue,
	}, keySeparator)
}

// Quota is the admission budget for one key: at most MaxRequests per fixed
// Window.
type Quota struct {
	MaxRequests uint
	Window      time.Duration
}

// Result reports the outcome of one admission attempt.
type Result struct {
	// Allowed is true when the request fits the quota.
	Allowed bool
	// Limit echoes the quota's MaxRequests for response headers.
	Limit uint
	// Remaining is the number of admissions left in the window, clamped to
	// zero.
	Remaining uint
	// ResetAt is when the current window ends and the counter starts fresh.
	ResetAt time.Time
	// RetryAfter is how long a denied caller should wait; zero when allowed.
	RetryAfter time.Duration
}

// Store counts admissions per key within fixed windows.
//
// Implementations return a Result for both admissions and logical denials; an
// error signals an operational failure (store unreachable, timeout), never a
// quota decision. RedisStore wraps those in ErrStoreUnavailable so callers
// can fall back; PostgresStore errors are terminal.
type Store interface {
	// TryAdmit counts the request against the key's current window and
	// decides admission. Callers must pass the same key and quota to every
	// store participating in the decision.
	TryAdmit(ctx context.Context, key Key, quota Quota) (Result, error)

	// Healthcheck verifies the backing store is reachable.
	Healthcheck(ctx context.Context) error
}

// admit builds the Result for a request inside its quota.
func admit(quota Quota, count uint, resetAt time.Time) Result {
	var remaining uint
	if count < quota.MaxRequests {
		remaining = quota.MaxRequests - count
	}
	return Result{
		Allowed:   true,
		Limit:     quota.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// deny builds the Result for a request over its quota. RetryAfter is the
// time left in the window rounded up to a whole second, and at least one
// second so a denied caller never retries immediately.
func deny(quota Quota, resetAt time.Time, now time.Time) Result {
	retryAfter := resetAt.Sub(now)
	if rem := retryAfter % time.Second; rem > 0 {
		retryAfter += time.Second - rem
	}
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Result{
		Allowed:    false,
		Limit:      quota.MaxRequests,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}
}
