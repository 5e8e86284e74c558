package identity

import (
	"net/http"

	"github.com/limitkit/limitkit/core/quota"
	"github.com/limitkit/limitkit/pkg/clientip"
	"github.com/limitkit/limitkit/pkg/fingerprint"
)

// Kind discriminates the identity variants. Exactly one kind is active per
// request.
type Kind string

const (
	KindUser   Kind = "user"
	KindDevice Kind = "device"
	KindIP     Kind = "ip"
)

// UnknownAddress is the sentinel used when no usable network address is
// present. Invalid header values are replaced with it rather than
// propagated, keeping spoofed proxy headers out of keys and logs.
const UnknownAddress = "unknown"

// Identity is the canonical caller identifier a request is counted under.
type Identity struct {
	Kind  Kind
	Value string
}

// Principal is the authenticated caller as resolved by the session layer,
// which is an external collaborator of the engine.
type Principal struct {
	UserID string
	Tier   quota.Tier
}

// Resolve derives the caller identity from the request, preferring
// authenticated identity over a device fingerprint over the network address:
//
//  1. a verified principal yields User(id),
//  2. a non-empty fingerprint yields Device(hash),
//  3. otherwise IP(address), with "unknown" when no address validates.
func Resolve(r *http.Request, principal *Principal) Identity {
	if principal != nil && principal.UserID != "" {
		return Identity{Kind: KindUser, Value: principal.UserID}
	}

	if fp := fingerprint.Generate(r); fp != "" {
		return Identity{Kind: KindDevice, Value: fp}
	}

	ip := clientip.GetIP(r)
	if ip == "" {
		ip = UnknownAddress
	}
	return Identity{Kind: KindIP, Value: ip}
}

// TierOf returns the caller's tier: the principal's tier when authenticated
// (defaulting to free when the session layer left it unset), anon otherwise.
func TierOf(principal *Principal) quota.Tier {
	if principal == nil || principal.UserID == "" {
		return quota.TierAnon
	}
	if principal.Tier == "" {
		return quota.TierFree
	}
	return principal.Tier
}
