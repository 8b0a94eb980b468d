// Package security holds small request hardening helpers for the webhook
// server: client address resolution behind proxies and response headers.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP resolves the caller address, honouring forwarding headers only
// when the direct peer is a trusted proxy.
type ClientIP struct {
	trusted []netip.Prefix
}

// NewClientIP trusts loopback and private ranges plus any extra CIDRs.
func NewClientIP(extra ...string) (*ClientIP, error) {
	c := &ClientIP{}
	for _, cidr := range append([]string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}, extra...) {
		if err := c.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *ClientIP) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	c.trusted = append(c.trusted, p.Masked())
	return nil
}

// Extract returns the client address for r. The leftmost valid
// X-Forwarded-For entry wins, then X-Real-IP, then the peer address.
func (c *ClientIP) Extract(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(direct)
	if err != nil || !c.isTrusted(addr.Unmap()) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if a, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return a.String()
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if a, err := netip.ParseAddr(xri); err == nil {
			return a.String()
		}
	}
	return direct
}

func (c *ClientIP) isTrusted(a netip.Addr) bool {
	for _, p := range c.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
