package security

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	ierr "invoicedash/internal/errors"
)

// DefaultTrustedProxies are loopback and private ranges.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// IPExtractor resolves the client address of a request. Forwarding headers
// are honoured only when the direct peer is a trusted proxy.
type IPExtractor struct {
	trusted []netip.Prefix
}

func NewIPExtractor(trustedCIDRs ...string) (*IPExtractor, error) {
	e := &IPExtractor{}
	for _, cidr := range trustedCIDRs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("invalid trusted proxy CIDR %q", cidr).
				Mark(ierr.ErrValidation)
		}
		e.trusted = append(e.trusted, prefix.Masked())
	}
	return e, nil
}

// MustIPExtractor panics on a malformed CIDR; for package-level defaults.
func MustIPExtractor(trustedCIDRs ...string) *IPExtractor {
	e, err := NewIPExtractor(trustedCIDRs...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *IPExtractor) ClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}

	addr, err := netip.ParseAddr(direct)
	if err != nil || !e.isTrusted(addr.Unmap()) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if _, err := netip.ParseAddr(first); err == nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return direct
}

func (e *IPExtractor) isTrusted(addr netip.Addr) bool {
	for _, p := range e.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
