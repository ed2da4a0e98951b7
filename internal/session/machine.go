package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/logging"
	"github.com/muurk/rplisten/internal/worker"
)

const (
	// DefaultConnectTimeout bounds a connect request.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultDisconnectTimeout bounds a single disconnect.
	DefaultDisconnectTimeout = 3 * time.Second
)

// errNoHandle is reported when a Protocol claims success without a handle.
var errNoHandle = errors.New("protocol returned no session")

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRecorder sets the lifecycle recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithRunner runs background work on r instead of a private worker pool.
func WithRunner(r Runner) Option {
	return func(m *Machine) {
		m.runner = r
	}
}

// WithConnectTimeout sets the connect timeout. Zero disables it.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Machine) {
		m.connectTimeout = d
	}
}

// WithDisconnectTimeout sets the per-disconnect timeout.
func WithDisconnectTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.disconnectTimeout = d
		}
	}
}

// WithObserver installs the initial observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.pub.setObserver(o)
	}
}

// Machine owns the single session and serializes every request against it.
//
// Start and Stop return immediately. Connect and disconnect run on the
// Runner, and their results are matched against the request token so a
// result that belongs to an abandoned request cannot change the state.
type Machine struct {
	protocol          Protocol
	runner            Runner
	pool              *worker.Pool
	logger            *zap.Logger
	recorder          Recorder
	connectTimeout    time.Duration
	disconnectTimeout time.Duration
	pub               *publisher

	mu      sync.Mutex
	phase   Phase
	address string
	handle  Handle
	token   uint64
	timer   *time.Timer
	closed  bool

	// cancelConnect aborts the in-flight connect of the current token
	cancelConnect context.CancelFunc
	quit          chan struct{}
}

// NewMachine creates an Idle machine driving protocol. Call Shutdown when
// done with it.
func NewMachine(protocol Protocol, opts ...Option) *Machine {
	m := &Machine{
		protocol:          protocol,
		logger:            zap.NewNop(),
		recorder:          nopRecorder{},
		connectTimeout:    DefaultConnectTimeout,
		disconnectTimeout: DefaultDisconnectTimeout,
		pub:               newPublisher(),
		quit:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.runner == nil {
		m.pool = worker.New(worker.DefaultSize, m.logger.Named("worker"))
		m.runner = m.pool
	}

	return m
}

// SetObserver replaces the observer and returns the previous one. Passing
// nil unsubscribes.
func (m *Machine) SetObserver(o Observer) Observer {
	return m.pub.setObserver(o)
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return State{Phase: m.phase, Address: m.address, Token: m.token}
}

// Controls derives the control state for the current phase.
func (m *Machine) Controls(manualSelected, resolvable bool) Controls {
	return ControlsFor(m.State().Phase, manualSelected, resolvable)
}

// Details describes the connected session. The handle never leaves the
// Machine; a handle that is not a Describer reports its ID only.
func (m *Machine) Details(ctx context.Context) ([]Detail, error) {
	m.mu.Lock()
	h := m.handle
	connected := m.phase == PhaseConnected
	m.mu.Unlock()

	if !connected || h == nil {
		return nil, ErrNotConnected
	}
	if d, ok := h.(Describer); ok {
		return d.Details(ctx), nil
	}
	return []Detail{{Key: "Session", Value: h.ID()}}, nil
}

// Start begins connecting to address. It fails with ErrInvalidTransition
// unless the machine is Idle, leaving the state untouched. A connect failure
// is not returned here; it is reported once as a NotConnected event.
func (m *Machine) Start(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrEmptyTarget
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.phase != Idle {
		phase := m.phase
		m.mu.Unlock()

		m.recorder.Rejected()
		m.logger.Debug("Start rejected", zap.String("phase", phase.String()), zap.String("address", address))
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, phase)
	}

	m.token++
	token := m.token
	m.setPhaseLocked(PhaseConnecting, address, nil)

	if m.connectTimeout > 0 {
		m.timer = time.AfterFunc(m.connectTimeout, func() {
			m.onConnectFailed(token, nil, ErrConnectTimeout)
		})
	}
	m.mu.Unlock()

	if err := m.runner.Go(func(ctx context.Context) {
		m.connect(ctx, token, address)
	}); err != nil {
		m.onConnectFailed(token, nil, err)
	}

	return nil
}

// Stop ends a Connected session. The machine returns to Idle at once and
// the disconnect runs in the background. Stop does nothing unless the
// machine is Connected.
func (m *Machine) Stop() {
	m.mu.Lock()
	if m.phase != PhaseConnected {
		phase := m.phase
		m.mu.Unlock()
		m.logger.Debug("Stop ignored", zap.String("phase", phase.String()))
		return
	}

	h := m.handle
	m.handle = nil
	m.token++
	m.setPhaseLocked(Idle, "", nil)
	m.mu.Unlock()

	m.disconnect(h)
}

// Shutdown disconnects a held session synchronously, abandons any pending
// connect and waits for background work until ctx expires. Errors are
// logged and swallowed. Shutdown is idempotent.
func (m *Machine) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.abandonLocked()
	close(m.quit)

	h := m.handle
	m.handle = nil
	if m.phase != Idle {
		m.token++
		m.setPhaseLocked(Idle, "", nil)
	}
	m.mu.Unlock()

	if h != nil {
		if err := m.disconnectNow(ctx, h); err != nil {
			m.logger.Debug("Ignoring disconnect error during shutdown", zap.Error(err))
		}
	}

	if m.pool != nil {
		if err := m.pool.Close(ctx); err != nil {
			m.logger.Debug("Worker pool did not drain", zap.Error(err))
		}
	}

	if err := m.pub.close(ctx); err != nil {
		m.logger.Debug("Status delivery did not drain", zap.Error(err))
	}
}

func (m *Machine) connect(ctx context.Context, token uint64, address string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if token != m.token || m.phase != PhaseConnecting {
		m.mu.Unlock()
		m.logger.Debug("Skipping abandoned connect", zap.String("address", address), zap.Uint64("token", token))
		return
	}
	m.cancelConnect = cancel
	m.mu.Unlock()

	if m.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.connectTimeout)
		defer cancel()
	}

	m.logger.Debug("Connecting", zap.String("address", address), zap.Uint64("token", token))

	h, err := m.protocol.Connect(ctx, address)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrConnectTimeout, err)
		}
		m.onConnectFailed(token, h, err)
		return
	}
	if h == nil {
		m.onConnectFailed(token, nil, errNoHandle)
		return
	}

	m.onConnectSucceeded(token, h)
}

// onConnectSucceeded moves Connecting to Connected. A success for any other
// token or phase is stale and its handle is disconnected.
func (m *Machine) onConnectSucceeded(token uint64, h Handle) {
	m.mu.Lock()
	if token != m.token || m.phase != PhaseConnecting {
		m.mu.Unlock()

		m.recorder.StaleCallback()
		m.logger.Debug("Discarding stale connect success",
			zap.Uint64("token", token),
			zap.String("session", handleID(h)),
		)
		m.disconnect(h)
		return
	}

	m.stopTimerLocked()
	m.cancelConnect = nil
	m.handle = h
	m.setPhaseLocked(PhaseConnected, m.address, nil)
	m.watch(token, h)
	m.mu.Unlock()
}

// watch ends the session when the current handle reports that it closed.
func (m *Machine) watch(token uint64, h Handle) {
	e, ok := h.(Ender)
	if !ok {
		return
	}
	done := e.Done()
	if done == nil {
		return
	}

	go func() {
		select {
		case <-done:
			m.onSessionEnded(token, h)
		case <-m.quit:
		}
	}()
}

// onSessionEnded moves Connected to Idle after the remote end closed the
// session. It is ignored unless token still names the connected session.
func (m *Machine) onSessionEnded(token uint64, h Handle) {
	m.mu.Lock()
	if token != m.token || m.phase != PhaseConnected {
		m.mu.Unlock()
		m.logger.Debug("Ignoring end of a released session",
			zap.Uint64("token", token),
			zap.String("session", handleID(h)),
		)
		return
	}

	m.handle = nil
	m.token++
	m.setPhaseLocked(Idle, "", nil)
	m.mu.Unlock()

	m.logger.Info("Session ended by device", zap.String("session", handleID(h)))
	m.disconnect(h)
}

// onConnectFailed moves Connecting back to Idle and releases any partial
// handle.
func (m *Machine) onConnectFailed(token uint64, partial Handle, err error) {
	m.mu.Lock()
	if token != m.token || m.phase != PhaseConnecting {
		m.mu.Unlock()

		m.recorder.StaleCallback()
		m.logger.Debug("Discarding stale connect failure", zap.Uint64("token", token), zap.Error(err))
		m.disconnect(partial)
		return
	}

	m.abandonLocked()
	address := m.address
	m.token++
	m.setPhaseLocked(Idle, "", &ConnectError{Address: address, Err: err})
	m.mu.Unlock()

	m.recorder.ConnectFailed(err)
	m.logger.Warn("Connect failed", zap.String("address", address), zap.Error(err))

	m.disconnect(partial)
}

// disconnect releases h in the background. Once the runner is closed it
// runs on the calling goroutine.
func (m *Machine) disconnect(h Handle) {
	if h == nil {
		return
	}

	task := func(ctx context.Context) {
		_ = m.disconnectNow(ctx, h)
	}
	if err := m.runner.Go(task); err != nil {
		task(context.Background())
	}
}

func (m *Machine) disconnectNow(ctx context.Context, h Handle) error {
	ctx, cancel := context.WithTimeout(ctx, m.disconnectTimeout)
	defer cancel()

	err := m.protocol.Disconnect(ctx, h)
	m.recorder.Disconnected(err)
	if err != nil {
		m.logger.Warn("Disconnect failed", zap.String("session", handleID(h)), zap.Error(err))
		return err
	}

	m.logger.Debug("Disconnected", zap.String("session", handleID(h)))
	return nil
}

// setPhaseLocked records a transition and publishes its event. The caller
// holds m.mu, which keeps event order equal to transition order.
func (m *Machine) setPhaseLocked(to Phase, address string, err error) {
	from := m.phase
	eventAddress := address
	if to == Idle {
		eventAddress = m.address
	}

	m.phase = to
	m.address = address

	logging.LogTransition(m.logger, from.String(), to.String(), m.token)
	m.recorder.Transition(from, to)
	m.pub.publish(to.Status(), eventAddress, err)
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// abandonLocked stops the connect timer and cancels the in-flight connect.
func (m *Machine) abandonLocked() {
	m.stopTimerLocked()
	if m.cancelConnect != nil {
		m.cancelConnect()
		m.cancelConnect = nil
	}
}

func handleID(h Handle) string {
	if h == nil {
		return ""
	}
	return h.ID()
}
