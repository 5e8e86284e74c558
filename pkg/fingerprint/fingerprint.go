package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/limitkit/limitkit/pkg/clientip"
)

// Version identifies the attribute list and separator used to build
// fingerprints. Bump when the list below changes so stored fingerprints
// from older versions are never compared against newer ones.
const Version = "v1"

// separator joins attribute values before hashing. The unit separator
// control byte cannot appear in HTTP header values or textual IP
// addresses, so ["ab","c"] and ["a","bc"] can never hash identically.
const separator = "\x1f"

// attributeHeaders is the frozen, ordered list of request headers that feed
// the v1 fingerprint. Order is part of the contract: reordering changes
// every hash. The resolved client IP is appended after these.
var attributeHeaders = []string{
	"User-Agent",
	"Accept-Language",
	"Accept-Encoding",
	"Accept",
	"Sec-CH-UA",
	"Sec-CH-UA-Mobile",
	"Sec-CH-UA-Platform",
	"Sec-Fetch-Dest",
	"Sec-Fetch-Mode",
	"Sec-Fetch-Site",
	"DNT",
	"Save-Data",
	"Viewport-Width",
}

// Generate derives a stable pseudo-identity from the request.
//
// It concatenates the v1 attribute list (attribute headers plus the resolved
// client IP) in fixed order, keeping empty values in place so each attribute
// occupies a stable position, and returns the lowercase hex SHA-256 of the
// result prefixed with the version.
//
// Returns an empty string when every header attribute is empty. The client
// IP alone is not device signal: a header-free request must fall through to
// address-based identity rather than masquerade as a device, so the IP
// feeds the hash but never rescues an otherwise empty attribute set.
func Generate(r *http.Request) string {
	attrs := make([]string, 0, len(attributeHeaders)+1)
	empty := true
	for _, name := range attributeHeaders {
		v := r.Header.Get(name)
		if v != "" {
			empty = false
		}
		attrs = append(attrs, v)
	}
	if empty {
		return ""
	}
	attrs = append(attrs, clientip.GetIP(r))

	sum := sha256.Sum256([]byte(strings.Join(attrs, separator)))
	return Version + ":" + hex.EncodeToString(sum[:])
}
