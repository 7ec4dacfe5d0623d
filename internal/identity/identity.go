// Package identity derives a stable client key from request metadata.
package identity

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// FallbackKey is used when neither headers nor the peer address yield a
// usable identity. Requests under it still share one bucket rather than
// bypassing the limiter.
const FallbackKey = "unknown"

// Strategy names accepted in configuration.
const (
	StrategyForwardedFor = "forwarded_for"
	StrategyPeerAddress  = "peer_address"
)

// Resolver produces the key used to partition rate-limit state per caller.
type Resolver interface {
	ClientKey(r *http.Request) string
}

// ForwardedFor trusts the first hop of the X-Forwarded-For chain when
// present and falls back to the transport peer address. The proxy chain is
// not validated; deployments without a trusted proxy should use PeerAddress.
type ForwardedFor struct{}

// ClientKey implements Resolver.
func (ForwardedFor) ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if origin := strings.TrimSpace(strings.Split(xff, ",")[0]); origin != "" {
			return origin
		}
	}
	return peerKey(r)
}

// PeerAddress ignores proxy headers entirely and keys on the transport
// peer address.
type PeerAddress struct{}

// ClientKey implements Resolver.
func (PeerAddress) ClientKey(r *http.Request) string {
	return peerKey(r)
}

func peerKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if addr := strings.TrimSpace(r.RemoteAddr); addr != "" {
		return addr
	}
	return FallbackKey
}

// FromName returns the Resolver for a configured strategy name.
func FromName(name string) (Resolver, error) {
	switch name {
	case "", StrategyForwardedFor:
		return ForwardedFor{}, nil
	case StrategyPeerAddress:
		return PeerAddress{}, nil
	default:
		return nil, fmt.Errorf("unknown identity strategy '%s'", name)
	}
}
