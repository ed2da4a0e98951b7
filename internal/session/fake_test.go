package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	id string
}

func (h *fakeHandle) ID() string { return h.id }

// endingHandle is a handle the test can close as if the device hung up.
type endingHandle struct {
	fakeHandle
	done chan struct{}
}

func newEndingHandle(id string) *endingHandle {
	return &endingHandle{fakeHandle: fakeHandle{id: id}, done: make(chan struct{})}
}

func (h *endingHandle) Done() <-chan struct{} { return h.done }

func (h *endingHandle) hangUp() { close(h.done) }

type describedHandle struct {
	fakeHandle
	details []Detail
}

func (h *describedHandle) Details(ctx context.Context) []Detail { return h.details }

// cancellableProtocol blocks every Connect until ctx is cancelled.
type cancellableProtocol struct {
	entered chan struct{}
}

func (p *cancellableProtocol) Connect(ctx context.Context, address string) (Handle, error) {
	p.entered <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *cancellableProtocol) Disconnect(ctx context.Context, h Handle) error {
	return nil
}

type outcome struct {
	h   Handle
	err error
}

// pendingConnect is one blocked Connect call awaiting its result.
type pendingConnect struct {
	address string
	done    chan outcome
}

func (p *pendingConnect) succeed(h Handle) {
	p.done <- outcome{h: h}
}

func (p *pendingConnect) fail(partial Handle, err error) {
	p.done <- outcome{h: partial, err: err}
}

// fakeProtocol blocks every Connect until the test completes it. It ignores
// ctx so late results can be produced on purpose.
type fakeProtocol struct {
	connects chan *pendingConnect

	mu            sync.Mutex
	disconnected  []Handle
	disconnectErr error
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{connects: make(chan *pendingConnect, 16)}
}

func (f *fakeProtocol) Connect(ctx context.Context, address string) (Handle, error) {
	p := &pendingConnect{address: address, done: make(chan outcome, 1)}
	f.connects <- p
	o := <-p.done
	return o.h, o.err
}

func (f *fakeProtocol) Disconnect(ctx context.Context, h Handle) error {
	if h == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, h)
	return f.disconnectErr
}

func (f *fakeProtocol) disconnects() []Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Handle, len(f.disconnected))
	copy(out, f.disconnected)
	return out
}

func (f *fakeProtocol) nextConnect(t *testing.T) *pendingConnect {
	t.Helper()
	select {
	case p := <-f.connects:
		return p
	case <-time.After(time.Second):
		t.Fatal("no connect request issued")
		return nil
	}
}

func (f *fakeProtocol) waitDisconnects(t *testing.T, n int) []Handle {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.disconnects()) >= n
	}, time.Second, 5*time.Millisecond)
	return f.disconnects()
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnStatus(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) statuses() []Status {
	var out []Status
	for _, e := range l.snapshot() {
		out = append(out, e.Status)
	}
	return out
}

// waitStatuses waits for len(want) events and then checks no extra events
// arrive shortly after.
func (l *eventLog) waitStatuses(t *testing.T, want ...Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(l.snapshot()) >= len(want)
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, want, l.statuses())
}

type countingRecorder struct {
	mu            sync.Mutex
	transitions   int
	failures      int
	stale         int
	rejected      int
	disconnects   int
	disconnectErr int
}

func (r *countingRecorder) Transition(from, to Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions++
}

func (r *countingRecorder) ConnectFailed(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *countingRecorder) StaleCallback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale++
}

func (r *countingRecorder) Rejected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

func (r *countingRecorder) Disconnected(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
	if err != nil {
		r.disconnectErr++
	}
}

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *fakeProtocol, *eventLog) {
	t.Helper()

	proto := newFakeProtocol()
	log := &eventLog{}

	all := append([]Option{WithConnectTimeout(0), WithObserver(log)}, opts...)
	m := NewMachine(proto, all...)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		m.Shutdown(ctx)
	})

	return m, proto, log
}
