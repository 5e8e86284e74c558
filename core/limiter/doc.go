// Package limiter orchestrates tiered rate limiting across two counter stores.
//
// Engine.Check is the single entry point. Per request it resolves the
// caller identity (user id, then device fingerprint, then IP),
// looks up the (action, tier) quota, and walks a fixed state machine:
//
//	Resolving → PrimaryAttempt → {Admit | Deny | FallbackAttempt} → {Admit | Deny}
//
// The failure semantics are intentionally asymmetric. Losing the primary
// (Redis) store degrades latency but preserves availability through the
// durable (Postgres) fallback; losing both stores denies traffic for a full
// window rather than admitting it unmetered. A circuit breaker in front of
// the primary store converts repeated failures into immediate fallbacks so a
// dead Redis does not cost a timeout per request.
//
//	engine, err := limiter.New(table, redisStore,
//		limiter.WithFallbackStore(pgStore),
//		limiter.WithLogger(logger),
//	)
//
//	result := engine.Check(r.Context(), r, principal, "generate")
//	if !result.Allowed {
//		// deny the request; surface result.RetryAfter to the client
//	}
//
// Check never returns an error: logical denials (real or fail-closed) are
// the only outcome visible to callers, and infrastructure failures are
// logged with the key and failing store for operators.
package limiter
