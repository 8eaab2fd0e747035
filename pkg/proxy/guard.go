package proxy

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"sync/atomic"
)

// Resolver looks up the addresses of a host name. *net.Resolver satisfies
// it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Guard decides whether a caller may use the proxy.
type Guard struct {
	restrict atomic.Bool
	resolver Resolver
}

// NewGuard creates a guard. A nil resolver uses net.DefaultResolver.
func NewGuard(restrictToLoopback bool, resolver Resolver) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	g := &Guard{resolver: resolver}
	g.restrict.Store(restrictToLoopback)
	return g
}

// SetRestrictToLoopback changes the restriction for later exchanges.
func (g *Guard) SetRestrictToLoopback(restrict bool) {
	g.restrict.Store(restrict)
}

// RestrictToLoopback reports the current restriction.
func (g *Guard) RestrictToLoopback() bool {
	return g.restrict.Load()
}

// Admit returns nil if the caller at remoteAddr may use the proxy and an
// *AdmissionError otherwise. With the restriction on, only callers whose
// address is loopback are admitted. A name is admitted only if every
// address it resolves to is loopback; failure to parse or resolve refuses
// the caller.
func (g *Guard) Admit(ctx context.Context, remoteAddr string) error {
	if !g.restrict.Load() {
		return nil
	}

	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return &AdmissionError{RemoteAddr: remoteAddr, Reason: ReasonUnparseable}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.Unmap().IsLoopback() {
			return nil
		}
		return &AdmissionError{RemoteAddr: remoteAddr, Reason: ReasonNotLoopback}
	}

	addrs, err := g.resolver.LookupHost(ctx, host)
	if err != nil {
		return &AdmissionError{RemoteAddr: remoteAddr, Reason: ReasonUnresolvable, Cause: err}
	}
	if len(addrs) == 0 {
		return &AdmissionError{RemoteAddr: remoteAddr, Reason: ReasonUnresolvable, Cause: errors.New("no addresses")}
	}
	for _, a := range addrs {
		addr, err := netip.ParseAddr(a)
		if err != nil {
			return &AdmissionError{RemoteAddr: remoteAddr, Reason: ReasonUnresolvable, Cause: err}
		}
		if !addr.Unmap().IsLoopback() {
			return &AdmissionError{RemoteAddr: remoteAddr, Reason: ReasonNotLoopback}
		}
	}
	return nil
}

// rejectionReason returns the metrics label for an Admit error.
func rejectionReason(err error) string {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ReasonUnparseable
}
