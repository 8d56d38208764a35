package profiles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu      sync.Mutex
	updates []*ProfileUpdate
	idx     int
	closed  bool
	block   chan struct{}
}

func newFakeStream(updates ...*ProfileUpdate) *fakeStream {
	return &fakeStream{updates: updates, block: make(chan struct{})}
}

func (f *fakeStream) Recv() (*ProfileUpdate, error) {
	f.mu.Lock()
	if f.idx < len(f.updates) {
		u := f.updates[f.idx]
		f.idx++
		f.mu.Unlock()
		return u, nil
	}
	f.mu.Unlock()
	<-f.block // block forever until the test closes the stream
	return nil, errors.New("fakeStream: closed")
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.block)
	}
	return nil
}

func dest(t *testing.T) NameAddr {
	t.Helper()
	n, err := NewNameAddr("billing.default.svc.cluster.local:8080")
	require.NoError(t, err)
	return n
}

func TestWatcher_GetRoutes_PublishesFirstUpdateImmediately(t *testing.T) {
	rule := RouteRule{Match: AllRequestMatch{}, Route: DefaultRoute()}
	stream := newFakeStream(&ProfileUpdate{Routes: Routes{rule}})
	defer stream.Close()

	client := UnaryStreamProfileFunc(func(ctx context.Context, dst NameAddr) (ProfileStream, error) {
		return stream, nil
	})
	w := NewWatcher(client, nil)

	recv, ok := w.GetRoutes(dest(t))
	require.True(t, ok)
	defer recv.Release()

	require.Eventually(t, func() bool {
		return len(recv.Get()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_GetRoutes_SharesOneStreamAcrossSubscribers(t *testing.T) {
	var opens int
	var mu sync.Mutex
	stream := newFakeStream(&ProfileUpdate{Routes: Routes{}})
	defer stream.Close()

	client := UnaryStreamProfileFunc(func(ctx context.Context, dst NameAddr) (ProfileStream, error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return stream, nil
	})
	w := NewWatcher(client, nil)

	d := dest(t)
	recv1, _ := w.GetRoutes(d)
	recv2, _ := w.GetRoutes(d)
	defer recv1.Release()
	defer recv2.Release()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, opens, "a second GetRoutes for the same destination must not reopen the stream")
}

func TestWatcher_DuplicateSuppressionByPointerIdentity(t *testing.T) {
	shared := Routes{{Match: AllRequestMatch{}, Route: DefaultRoute()}}
	// Two updates carrying the SAME backing Routes array: must publish once.
	stream := newFakeStream(
		&ProfileUpdate{Routes: shared},
		&ProfileUpdate{Routes: shared},
	)
	defer stream.Close()

	client := UnaryStreamProfileFunc(func(ctx context.Context, dst NameAddr) (ProfileStream, error) {
		return stream, nil
	})
	w := NewWatcher(client, nil)

	recv, ok := w.GetRoutes(dest(t))
	require.True(t, ok)
	defer recv.Release()

	var publishCount int
	go func() {
		for {
			select {
			case <-recv.Changed():
				publishCount++
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, publishCount, 1)
}

func TestWatcher_Stop_CancelsUnderlyingStream(t *testing.T) {
	stream := newFakeStream()
	var mu sync.Mutex
	var ctxs []context.Context
	opened := func(n int) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(ctxs) == n
		}
	}
	client := UnaryStreamProfileFunc(func(ctx context.Context, dst NameAddr) (ProfileStream, error) {
		mu.Lock()
		ctxs = append(ctxs, ctx)
		mu.Unlock()
		return stream, nil
	})
	w := NewWatcher(client, nil)

	d := dest(t)
	recv, _ := w.GetRoutes(d)
	require.Eventually(t, opened(1), time.Second, 5*time.Millisecond)
	recv.Release()

	w.Stop(d)
	mu.Lock()
	first := ctxs[0]
	mu.Unlock()
	assert.ErrorIs(t, first.Err(), context.Canceled)

	// A fresh GetRoutes after Stop must start a new stream, not reuse state.
	recv2, ok := w.GetRoutes(d)
	require.True(t, ok)
	require.Eventually(t, opened(2), time.Second, 5*time.Millisecond)
	recv2.Release()
}
