// Package clientip resolves the address a request came from, for rate
// limiting and logging.
package clientip

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// Resolver extracts the client IP. X-Forwarded-For is honoured only when the
// direct peer is one of the trusted proxies; otherwise the header could be
// set by the client itself.
type Resolver struct {
	trusted []*net.IPNet
}

// NewResolver parses proxies as CIDR ranges or single addresses. An empty
// list trusts nobody, so only r.RemoteAddr is used.
func NewResolver(proxies []string) (*Resolver, error) {
	res := &Resolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("clientip: invalid proxy address %q", p)
			}
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			p = fmt.Sprintf("%s/%d", ip, bits)
		}
		_, network, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("clientip: invalid proxy range %q: %w", p, err)
		}
		res.trusted = append(res.trusted, network)
	}
	return res, nil
}

// ClientIP walks X-Forwarded-For from the right, skipping trusted hops, and
// returns the first address that is not a trusted proxy.
func (res *Resolver) ClientIP(r *http.Request) string {
	client := peer(r)
	if !res.trusts(client) {
		return client
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			break
		}
		client = hop
		if !res.trusts(hop) {
			return hop
		}
	}
	return client
}

func (res *Resolver) trusts(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range res.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func peer(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

var current atomic.Pointer[Resolver]

func init() {
	current.Store(&Resolver{})
}

// Use installs res as the resolver behind RealClientIP.
func Use(res *Resolver) {
	current.Store(res)
}

// RealClientIP returns the client IP using the installed resolver. Without
// a call to Use it is r.RemoteAddr only.
func RealClientIP(r *http.Request) string {
	return current.Load().ClientIP(r)
}
