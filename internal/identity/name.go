// Package identity implements the control-plane identity daemon: it keeps
// this workload's signed leaf certificate fresh by periodically calling a
// remote Certify RPC and publishing the result to a watch.Watch for other
// subsystems (TLS acceptors, outbound clients) to consume.
package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// namePattern mirrors the label-safe rules already enforced for service
// names elsewhere in this module (see domain.ServiceName): alphanumeric,
// hyphens, underscores and dots, DNS-label shaped.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?$`)

// Name is a validated, immutable workload identity name, shaped like a DNS
// label (e.g. "web.default.svc.cluster.local" or a bare service name).
type Name struct {
	value string
}

// NewName validates and constructs a Name.
func NewName(value string) (Name, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Name{}, fmt.Errorf("identity: name cannot be empty")
	}
	if !namePattern.MatchString(trimmed) {
		return Name{}, fmt.Errorf("identity: name %q is not label-safe", trimmed)
	}
	return Name{value: trimmed}, nil
}

// String returns the name's textual form.
func (n Name) String() string { return n.value }

// IsZero reports whether this Name was never validated/constructed.
func (n Name) IsZero() bool { return n.value == "" }
