// Package middleware provides net/http middleware for enforcing tiered
// rate limits at the edge of an HTTP service.
//
// The RateLimit middleware consults a limiter.Engine before the wrapped
// handler runs. Callers over quota receive 429 Too Many Requests with a
// Retry-After header; everyone else passes through, optionally annotated
// with X-RateLimit-* headers.
//
//	engine, _ := limiter.New(table, redisStore, limiter.WithFallbackStore(pgStore))
//
//	mux := http.NewServeMux()
//	mux.Handle("/api/search", middleware.RateLimit(middleware.RateLimitConfig{
//		Engine:     engine,
//		Action:     "search",
//		Principal:  principalFromSession,
//		SetHeaders: true,
//	})(searchHandler))
package middleware
