package profiles

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sufield/ephemos/internal/watch"
)

// streamReconnectBackoff bounds how fast the watcher retries a broken
// Destination/Profile stream.
const streamReconnectBackoff = time.Second

// GetRoutes is the Profile Watcher's public contract: given a destination
// authority, return a live view of its route table, or false if the
// destination is not eligible for profile discovery at all. Eligibility
// (DNS suffix filtering) is deliberately NOT this package's concern — it
// lives in the router, which is the only caller that knows its configured
// suffix list.
type GetRoutes interface {
	GetRoutes(dst NameAddr) (*watch.Receiver[Routes], bool)
}

// ProfileUpdate is the translated shape of one Destination/Profile RPC
// message: an ordered route table. The wire schema itself is out of this
// package's scope (spec.md §6 "the exact wire schema is external"); a
// ProfileClient implementation is responsible for producing these.
type ProfileUpdate struct {
	Routes Routes
}

// ProfileStream is a server-streaming RPC handle: successive calls to Recv
// block until the next message, returning io.EOF-shaped termination via a
// non-nil error. A well-behaved control plane stream never terminates in
// steady state; Recv returning an error means the watcher should retry.
type ProfileStream interface {
	Recv() (*ProfileUpdate, error)
	Close() error
}

// ProfileClient opens a Destination/Profile stream for a destination
// authority. Implementations own the underlying transport (gRPC, in
// production); this package only consumes the abstract stream.
type ProfileClient interface {
	StreamProfile(ctx context.Context, dst NameAddr) (ProfileStream, error)
}

// UnaryStreamProfileFunc adapts a plain function to ProfileClient, mirroring
// the Certify side's UnaryCertifyFunc adapter for tests and simple
// production wiring alike.
type UnaryStreamProfileFunc func(ctx context.Context, dst NameAddr) (ProfileStream, error)

// StreamProfile implements ProfileClient.
func (f UnaryStreamProfileFunc) StreamProfile(ctx context.Context, dst NameAddr) (ProfileStream, error) {
	return f(ctx, dst)
}

// Watcher is the Profile Watcher: it lazily opens one Destination/Profile
// stream per destination authority on first subscription, translates each
// update into a Routes table, and republishes it through a Watch so every
// Profile Router instance routing to that destination observes the same
// latest table (spec.md §4.2).
type Watcher struct {
	client ProfileClient
	logger *slog.Logger

	mu      sync.Mutex
	perDest map[NameAddr]*destState
}

type destState struct {
	w      *watch.Watch[Routes]
	cancel context.CancelFunc
}

// NewWatcher constructs a Watcher backed by client.
func NewWatcher(client ProfileClient, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		client:  client,
		logger:  logger,
		perDest: make(map[NameAddr]*destState),
	}
}

// GetRoutes implements GetRoutes. Every destination is eligible at this
// layer — suffix filtering is the router's job — so the bool result is
// always true; it exists to satisfy the interface shape spec.md §6
// describes (callers above the router layer that filter before calling in
// would use it to short-circuit).
func (w *Watcher) GetRoutes(dst NameAddr) (*watch.Receiver[Routes], bool) {
	w.mu.Lock()
	state, ok := w.perDest[dst]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		state = &destState{
			w:      watch.New(Routes(nil)),
			cancel: cancel,
		}
		w.perDest[dst] = state
		// Subscribe before the stream goroutine starts, so its first
		// Publish always has an observer.
		recv := state.w.Subscribe()
		go w.run(ctx, dst, state.w)
		w.mu.Unlock()
		return recv, true
	}
	recv := state.w.Subscribe()
	w.mu.Unlock()

	return recv, true
}

// Stop tears down the stream for dst, if one is running. Used when a
// Profile Router for that destination shuts down and no other router
// shares it.
func (w *Watcher) Stop(dst NameAddr) {
	w.mu.Lock()
	state, ok := w.perDest[dst]
	if ok {
		delete(w.perDest, dst)
	}
	w.mu.Unlock()

	if ok {
		state.cancel()
	}
}

// run drives one destination's stream for its entire lifetime, republishing
// translated route tables and retrying the stream itself on error. The
// stream it produces is infallible from the watcher's external contract: a
// transport error here is swallowed and retried, never surfaced to
// subscribers (spec.md §4.2 "never yields an error").
func (w *Watcher) run(ctx context.Context, dst NameAddr, out *watch.Watch[Routes]) {
	var previous Routes
	first := true

	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := w.client.StreamProfile(ctx, dst)
		if err != nil {
			w.logger.Warn("profile stream open failed, retrying", "destination", dst.String(), "error", err)
			if !sleepOrDone(ctx) {
				return
			}
			continue
		}

		for {
			update, err := stream.Recv()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					_ = stream.Close()
					return
				}
				w.logger.Warn("profile stream broken, reopening", "destination", dst.String(), "error", err)
				break
			}

			// Duplicate suppression by pointer identity, not structural
			// equality (spec.md §9): only republish when the control
			// plane actually handed back a different interior table.
			if first || !sameRoutes(previous, update.Routes) {
				if pubErr := out.Publish(update.Routes); pubErr != nil {
					var noObs watch.NoObserversError
					if errors.As(pubErr, &noObs) {
						_ = stream.Close()
						return
					}
				}
				previous = update.Routes
				first = false
			}
		}
		_ = stream.Close()

		if !sleepOrDone(ctx) {
			return
		}
	}
}

// sameRoutes compares two Routes tables by pointer identity of their rule
// list's backing array together with length, which is sufficient because
// ProfileClient implementations are expected to reuse Route/Labels/
// ResponseClasses allocations for semantically unchanged updates rather
// than reallocate on every message.
func sameRoutes(a, b Routes) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}

// sleepOrDone waits a short backoff before the next reconnect attempt,
// returning false if ctx is done first.
func sleepOrDone(ctx context.Context) bool {
	timer := time.NewTimer(streamReconnectBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	return true
}
