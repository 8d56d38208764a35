// Package profiles implements the Profile Watcher: a client to the
// Destination control service that exposes, per destination authority, a
// never-ending stream of route tables (spec.md §4.2).
package profiles

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NameAddr is a destination authority: a DNS name plus port, the unit of
// subscription for profile discovery. Grounded on the validated-address
// value-object style of domain.ServiceAddress, narrowed to the host:port
// shape the Destination control plane deals in.
type NameAddr struct {
	host string
	port uint16
}

// NewNameAddr validates and constructs a NameAddr from a "host:port" string.
func NewNameAddr(authority string) (NameAddr, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(authority))
	if err != nil {
		return NameAddr{}, fmt.Errorf("profiles: invalid authority %q: %w", authority, err)
	}
	if host == "" {
		return NameAddr{}, fmt.Errorf("profiles: authority %q has empty host", authority)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return NameAddr{}, fmt.Errorf("profiles: invalid port in authority %q: %w", authority, err)
	}
	return NameAddr{host: host, port: uint16(port)}, nil
}

// Host returns the destination's DNS name.
func (n NameAddr) Host() string { return n.host }

// Port returns the destination's port.
func (n NameAddr) Port() uint16 { return n.port }

// String renders the NameAddr back to "host:port" form.
func (n NameAddr) String() string {
	return net.JoinHostPort(n.host, strconv.FormatUint(uint64(n.port), 10))
}

// HasSuffix reports whether the destination's host ends in one of the
// given DNS suffixes, used by the router to decide whether a destination
// is eligible for profile discovery at all (spec.md §4.2 "that filter
// lives in the router layer, not here").
func (n NameAddr) HasSuffix(suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(n.host, suffix) {
			return true
		}
	}
	return false
}
