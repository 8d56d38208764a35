// Package router implements the Profile Router: a per-destination HTTP
// handler that recognizes a request's route from the destination's profile
// and dispatches it to a route-specialized inner service stack, hot-
// swapping the route table as the Profile Watcher emits new ones.
package router

import (
	"github.com/sufield/ephemos/internal/profiles"
)

// Target carries a router's destination and the capability to specialize
// itself for a recognized route. Concrete implementations are supplied by
// the surrounding stack (e.g. a listener binding a specific outbound
// destination).
type Target interface {
	// GetDestination returns the NameAddr this target routes to, or false
	// if the target has no addressable destination (e.g. it's bound to a
	// raw socket rather than a resolved service name).
	GetDestination() (profiles.NameAddr, bool)

	// WithRoute returns the SpecializedTarget for this target and route.
	// Implementations must be deterministic: equal (target, route) inputs
	// must produce equal SpecializedTarget outputs, since the router uses
	// it as a cache key.
	WithRoute(route profiles.Route) SpecializedTarget
}

// SpecializedTarget is a comparable cache key identifying one
// (destination, route) pair. It is intentionally a concrete comparable
// struct rather than an interface: the router's routing cache is a plain
// Go map keyed on it, which requires == to be well-defined.
type SpecializedTarget struct {
	Destination profiles.NameAddr
	Route       profiles.Route
}

// DestinationTarget is the common Target implementation: a fixed
// destination with no additional per-connection parameterization.
type DestinationTarget struct {
	Destination profiles.NameAddr
	HasDest     bool
}

// NewDestinationTarget builds a Target bound to dst.
func NewDestinationTarget(dst profiles.NameAddr) DestinationTarget {
	return DestinationTarget{Destination: dst, HasDest: true}
}

// GetDestination implements Target.
func (t DestinationTarget) GetDestination() (profiles.NameAddr, bool) {
	return t.Destination, t.HasDest
}

// WithRoute implements Target.
func (t DestinationTarget) WithRoute(route profiles.Route) SpecializedTarget {
	return SpecializedTarget{Destination: t.Destination, Route: route}
}
