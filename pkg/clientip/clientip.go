package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyHeaders lists the headers consulted for the original client address,
// most trustworthy first. CDN-set headers win over generic proxy headers.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP extracts the client IP address from the request.
//
// Proxy headers are checked in priority order (Cloudflare, DigitalOcean,
// X-Forwarded-For, X-Real-IP) before falling back to RemoteAddr. Every
// candidate is validated against strict IPv4/IPv6 grammar; spoofed or
// malformed header values are skipped rather than propagated, which keeps
// attacker-controlled bytes out of rate-limit keys and logs.
//
// Returns the canonical textual form of the address, or an empty string when
// no candidate validates.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		// X-Forwarded-For may carry a chain "client, proxy1, proxy2";
		// the leftmost entry is the original client.
		if header == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}

		if ip, ok := parseAddr(value); ok {
			return ip
		}
	}

	// RemoteAddr is host:port for direct connections, but may be a bare
	// address in tests or non-TCP transports.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip, ok := parseAddr(host); ok {
			return ip
		}
		return ""
	}
	if ip, ok := parseAddr(r.RemoteAddr); ok {
		return ip
	}

	return ""
}

// parseAddr validates a candidate address and returns its canonical form.
// The unspecified addresses (0.0.0.0, ::) indicate no usable client IP and
// are rejected.
func parseAddr(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || addr.IsUnspecified() {
		return "", false
	}
	return addr.String(), true
}
