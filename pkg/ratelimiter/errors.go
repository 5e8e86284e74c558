package ratelimiter

import "errors"

// Package-level error definitions for rate limiter stores.
var (
	ErrNilClient = errors.New("nil client")
	// ErrInvalidQuota rejects quotas with a zero limit or window before they
	// can zero out TTL math.
	ErrInvalidQuota = errors.New("invalid quota")
	// ErrStoreUnavailable marks recoverable infrastructure failures of the
	// primary store. Callers check it with errors.Is to decide whether a
	// fallback attempt makes sense.
	ErrStoreUnavailable = errors.New("store unavailable")
)
