// Package fingerprint builds stable device pseudo-identities from HTTP requests.
//
// A fingerprint is the SHA-256 digest of a frozen, versioned, ordered list of
// request attributes: User-Agent, Accept-* headers, client-hint headers
// (Sec-CH-UA*), fetch-metadata headers (Sec-Fetch-*), DNT, Save-Data,
// Viewport-Width, and the resolved client IP. Attribute order and the
// unit-separator delimiter are part of the contract: two processes (or two
// implementations in different languages) observing the same attribute
// values always derive the same fingerprint.
//
// Fingerprints identify callers that present no authenticated principal, so
// determinism matters more than entropy here: the goal is a consistent
// rate-limit key per device, not an unforgeable identifier.
//
//	fp := fingerprint.Generate(r)
//	if fp == "" {
//		// request carries no identifying signal; fall back to IP
//	}
package fingerprint
