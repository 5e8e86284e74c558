// Package clientip extracts and validates real client IP addresses from HTTP requests.
//
// The package handles common proxy headers in priority order to determine the
// actual client address behind proxies, load balancers, and CDNs:
//
//  1. CF-Connecting-IP (Cloudflare)
//  2. DO-Connecting-IP (DigitalOcean)
//  3. X-Forwarded-For (leftmost entry of the chain)
//  4. X-Real-IP (nginx and other reverse proxies)
//  5. RemoteAddr (direct connection)
//
// Every candidate is parsed with strict IPv4/IPv6 grammar (net/netip) and
// normalized to canonical form. Values that fail to parse, and the
// unspecified addresses 0.0.0.0 and ::, are skipped. When no candidate
// validates, GetIP returns an empty string so callers can substitute their
// own sentinel instead of propagating spoofable header bytes into keys or
// logs.
//
// Usage:
//
//	ip := clientip.GetIP(r)
//	if ip == "" {
//		ip = "unknown"
//	}
package clientip
