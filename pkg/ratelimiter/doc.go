// Package ratelimiter provides fixed-window request counting with pluggable storage backends.
//
// Each logical counter is identified by a Key, the (tier, identity, action)
// triple, and governed by a Quota of at most MaxRequests per Window. A
// Store's TryAdmit counts one request against the key's current window and
// reports the decision:
//
//	result, err := store.TryAdmit(ctx, key, quota)
//	if err != nil {
//		// operational failure, not a quota decision
//	}
//	if !result.Allowed {
//		// denied; result.RetryAfter says how long to back off
//	}
//
// # Fixed windows
//
// The first request for a key opens a window (count=1, reset after
// quota.Window); requests inside the window increment the count; the first
// request after the reset timestamp opens a fresh window regardless of the
// prior count. A missing record and an expired record are equivalent, so
// stores may physically expire records (Redis TTL, table cleanup) as a pure
// storage optimization.
//
// # Backends and their guarantees
//
// Three stores implement the same contract with different trade-offs:
//
//   - RedisStore: low latency, eventually consistent. Its read-modify-write
//     admits a bounded over-count under concurrent bursts (each in-flight
//     racer may increment off a stale base), which only ever denies earlier
//     than the exact limit, never later. Infrastructure failures are wrapped
//     in ErrStoreUnavailable so callers can fall back.
//   - PostgresStore: durable and linearizable per key via a single atomic
//     conditional upsert. Errors are terminal; there is no further fallback.
//   - MemoryStore: exact in-process counting for tests and single-node use,
//     with a background cleanup lifecycle for stale counters.
//
// The orchestration of primary, fallback, and fail-closed behavior lives in
// core/limiter; this package only counts.
package ratelimiter
