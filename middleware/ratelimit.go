package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/limitkit/limitkit/core/identity"
	"github.com/limitkit/limitkit/core/limiter"
	"github.com/limitkit/limitkit/core/quota"
	"github.com/limitkit/limitkit/pkg/ratelimiter"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Engine is the rate limiting engine to consult. Required.
	Engine *limiter.Engine
	// Action is the quota-table action this route counts against. Required.
	Action quota.Action
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(r *http.Request) bool
	// Principal extracts the authenticated caller from the request, typically
	// from a session or token set by an upstream auth middleware. Nil or a
	// nil return means anonymous.
	Principal func(r *http.Request) *identity.Principal
	// ErrorHandler renders the denial (default: 429 with Retry-After).
	ErrorHandler func(w http.ResponseWriter, r *http.Request, result ratelimiter.Result)
	// SetHeaders determines whether to include X-RateLimit-* information in
	// response headers.
	SetHeaders bool
}

// RateLimit creates a rate limiting middleware for one action.
//
// It consults the engine before the wrapped handler runs and converts a
// denial into a hard stop: the handler is never invoked, the client receives
// 429 with a Retry-After hint, and no internal retry happens. Panics if no
// engine or action is provided, since a misconfigured limiter would
// otherwise silently admit everything.
//
//	mux.Handle("/api/generate", middleware.RateLimit(middleware.RateLimitConfig{
//		Engine:     engine,
//		Action:     "generate",
//		Principal:  principalFromSession,
//		SetHeaders: true,
//	})(generateHandler))
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Engine == nil {
		panic("ratelimit middleware: engine is required")
	}
	if cfg.Action == "" {
		panic("ratelimit middleware: action is required")
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, result ratelimiter.Result) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			var principal *identity.Principal
			if cfg.Principal != nil {
				principal = cfg.Principal(r)
			}

			result := cfg.Engine.Check(r.Context(), r, principal, cfg.Action)

			if cfg.SetHeaders {
				setRateLimitHeaders(w, result)
			}

			if !result.Allowed {
				if retryAfter := retryAfterSeconds(result); retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				cfg.ErrorHandler(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders adds the standard rate limiting headers used by APIs
// like GitHub and Twitter: the window limit, remaining admissions, and the
// unix timestamp of the window reset.
func setRateLimitHeaders(w http.ResponseWriter, result ratelimiter.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatUint(uint64(result.Limit), 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatUint(uint64(result.Remaining), 10))
	if !result.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
}

// retryAfterSeconds converts the result's backoff to whole seconds, rounding
// up so a client never retries before the window actually resets.
func retryAfterSeconds(result ratelimiter.Result) int {
	if result.RetryAfter <= 0 {
		return 0
	}
	secs := int(result.RetryAfter / time.Second)
	if result.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
