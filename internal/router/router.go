package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/sufield/ephemos/internal/core/services"
	"github.com/sufield/ephemos/internal/profiles"
)

// InnerFactory builds the ready-to-use inner HTTP service for one
// SpecializedTarget. Implementations need not be cheap to call repeatedly
// for equal keys: the router calls it once per distinct key per routing
// table and caches the result until the table is replaced.
type InnerFactory func(key SpecializedTarget) (http.Handler, error)

// routingTable is an immutable snapshot: a route list, the default route,
// and the materialized-service cache for keys produced against it. A new
// snapshot is built wholesale on every profile update so stale specialized
// services are dropped together, never patched in place.
type routingTable struct {
	routes profiles.Routes
	def    profiles.Route

	mu    sync.Mutex
	cache map[SpecializedTarget]http.Handler
}

func newRoutingTable(routes profiles.Routes, def profiles.Route) *routingTable {
	return &routingTable{
		routes: routes,
		def:    def,
		cache:  make(map[SpecializedTarget]http.Handler, len(routes)+1),
	}
}

// Router is the Profile Router: an http.Handler that recognizes each
// request's route against the current table and dispatches to a
// route-specialized inner service, rebuilding the table whenever the
// Profile Watcher emits a new one (spec.md §4.3).
type Router struct {
	target       Target
	buildInner   InnerFactory
	logger       *slog.Logger
	metrics      services.MetricsReporter
	defaultRoute profiles.Route

	table atomic.Pointer[routingTable]

	watcher profiles.GetRoutes
	dest    profiles.NameAddr
	hasDest bool
	recv    profileReceiver

	cancel context.CancelFunc
	done   chan struct{}
}

// profileReceiver narrows the watch.Receiver interface this package needs,
// letting tests substitute a fake without importing internal/watch.
type profileReceiver interface {
	Get() profiles.Routes
	Changed() <-chan struct{}
	Release()
}

// New builds a Router for target. If target has a destination and that
// destination's host matches one of suffixes, the router subscribes to
// getRoutes for live route-table updates; otherwise it serves only the
// default route forever (spec.md §4.2 "that filter lives in the router
// layer, not here").
func New(target Target, buildInner InnerFactory, getRoutes profiles.GetRoutes, suffixes []string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	def := profiles.DefaultRoute()
	r := &Router{
		target:       target,
		buildInner:   buildInner,
		logger:       logger,
		metrics:      &services.NoOpMetrics{},
		defaultRoute: def,
		watcher:      getRoutes,
		done:         make(chan struct{}),
	}
	r.table.Store(newRoutingTable(nil, def))

	dst, ok := target.GetDestination()
	r.dest, r.hasDest = dst, ok

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	if ok && getRoutes != nil && dst.HasSuffix(suffixes) {
		recv, eligible := getRoutes.GetRoutes(dst)
		if eligible && recv != nil {
			r.recv = recv
			go r.watchLoop(ctx, recv)
			return r
		}
	}

	close(r.done)
	return r
}

// SetMetrics installs a metrics reporter, replacing the default no-op one.
// Call before the router starts serving traffic.
func (r *Router) SetMetrics(m services.MetricsReporter) {
	if m != nil {
		r.metrics = m
	}
}

// watchLoop is the translation of the upstream per-request "drain the
// stream non-blockingly on poll_ready" protocol into Go's handler model,
// which has no readiness call: a dedicated goroutine blocks on the next
// published table and swaps it in, collapsing any updates that arrived
// while a swap was in flight to the latest one (spec.md §4.3 "Update
// protocol").
func (r *Router) watchLoop(ctx context.Context, recv profileReceiver) {
	defer close(r.done)
	defer recv.Release()

	// Take the change signal before reading the value, so a publish that
	// lands between the two is never missed.
	changed := recv.Changed()
	if routes := recv.Get(); routes != nil {
		r.table.Store(newRoutingTable(routes, r.defaultRoute))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			changed = recv.Changed()
			routes := recv.Get()
			r.table.Store(newRoutingTable(routes, r.defaultRoute))
			r.logger.Debug("route table updated", "destination", r.dest.String(), "routes", len(routes))
			r.metrics.RecordRouteUpdate(r.dest.String(), len(routes))
		}
	}
}

// ServeHTTP implements http.Handler: recognize the route, materialize (or
// reuse) its specialized inner service, and delegate.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	table := r.table.Load()
	route := table.routes.Recognize(req, table.def)
	key := r.target.WithRoute(route)

	handler, err := r.getOrBuild(table, key)
	if err != nil {
		r.logger.Error("failed to build specialized service", "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	handler.ServeHTTP(w, req)
}

// getOrBuild returns the cached handler for key within table, building and
// caching it on first use. Routing itself never fails (the default route
// is always available); only construction of a specialized inner service
// can fail, and that failure is scoped to this one key.
func (r *Router) getOrBuild(table *routingTable, key SpecializedTarget) (http.Handler, error) {
	table.mu.Lock()
	defer table.mu.Unlock()

	if h, ok := table.cache[key]; ok {
		return h, nil
	}

	h, err := r.buildInner(key)
	if err != nil {
		return nil, fmt.Errorf("router: building inner service for %+v: %w", key, err)
	}
	table.cache[key] = h
	return h, nil
}

// Close stops this router's subscription to the Profile Watcher, if any,
// and waits for its watch loop to exit.
func (r *Router) Close() error {
	r.cancel()
	<-r.done
	if r.hasDest && r.watcher != nil {
		if stopper, ok := r.watcher.(interface {
			Stop(profiles.NameAddr)
		}); ok {
			stopper.Stop(r.dest)
		}
	}
	return nil
}
