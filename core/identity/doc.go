// Package identity derives a single canonical caller identifier per request.
//
// The resolution precedence is fixed: authenticated user id, then device
// fingerprint, then validated client IP with an "unknown" sentinel as the
// last resort. Rate-limit counters key off this identity, so the precedence
// guarantees that an authenticated user is never double-counted under a
// device or address identity.
package identity
