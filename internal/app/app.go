// Package app ties discovery, selection and the session machine together
// for the command line and terminal front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/discovery"
	"github.com/muurk/rplisten/internal/selection"
	"github.com/muurk/rplisten/internal/session"
)

// Discoverer produces device snapshots. *discovery.Registry implements it.
type Discoverer interface {
	Discover(ctx context.Context) (discovery.Snapshot, error)
}

// DiscoveryRecorder observes discovery runs. *metrics.Recorder implements it.
type DiscoveryRecorder interface {
	Discovery(d time.Duration, devices int, timedOut bool, err error)
}

// DiscoveryResult is the outcome of one discovery run.
type DiscoveryResult struct {
	// Entries is the selection list, manual sentinel first.
	Entries []selection.Entry

	Snapshot discovery.Snapshot

	// TimedOut reports that no device answered. Entries then holds only
	// the sentinel.
	TimedOut bool

	Duration time.Duration
}

// App owns one discoverer, one session machine and the latest selection list.
type App struct {
	discoverer Discoverer
	machine    *session.Machine
	recorder   DiscoveryRecorder
	logger     *zap.Logger

	mu       sync.Mutex
	snapshot discovery.Snapshot
	entries  []selection.Entry
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDiscoveryRecorder records every discovery run.
func WithDiscoveryRecorder(r DiscoveryRecorder) Option {
	return func(a *App) {
		a.recorder = r
	}
}

// New creates an App. The selection list holds only the manual entry until
// Discover has run.
func New(d Discoverer, m *session.Machine, opts ...Option) *App {
	a := &App{
		discoverer: d,
		machine:    m,
		logger:     zap.NewNop(),
		snapshot:   discovery.NewSnapshot(nil),
		entries:    selection.Filter(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Discover runs discovery and replaces the selection list. A timeout is not
// an error: the list is rebuilt from an empty snapshot and TimedOut is set.
// Other failures leave the previous list in place.
func (a *App) Discover(ctx context.Context) (DiscoveryResult, error) {
	started := time.Now()
	snapshot, err := a.discoverer.Discover(ctx)
	elapsed := time.Since(started)

	timedOut := errors.Is(err, discovery.ErrDiscoveryTimeout)
	if a.recorder != nil {
		a.recorder.Discovery(elapsed, snapshot.Len(), timedOut, err)
	}

	if err != nil && !timedOut {
		a.logger.Warn("Discovery failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return DiscoveryResult{Entries: a.Entries(), Snapshot: a.Snapshot(), Duration: elapsed},
			fmt.Errorf("discover devices: %w", err)
	}

	if timedOut {
		snapshot = discovery.NewSnapshot(nil)
	}
	entries := selection.Filter(snapshot.Devices())

	a.mu.Lock()
	a.snapshot = snapshot
	a.entries = entries
	a.mu.Unlock()

	a.logger.Info("Selection list updated",
		zap.Int("devices", snapshot.Len()),
		zap.Int("entries", len(entries)),
		zap.Bool("timed_out", timedOut),
	)

	return DiscoveryResult{
		Entries:  append([]selection.Entry(nil), entries...),
		Snapshot: snapshot,
		TimedOut: timedOut,
		Duration: elapsed,
	}, nil
}

// Entries returns a copy of the current selection list.
func (a *App) Entries() []selection.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]selection.Entry(nil), a.entries...)
}

// Entry returns the entry at index i of the current selection list.
func (a *App) Entry(i int) (selection.Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.entries) {
		return selection.Entry{}, false
	}
	return a.entries[i], true
}

// Snapshot returns the snapshot the current selection list was built from.
func (a *App) Snapshot() discovery.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// StartSelected resolves entry and starts a session with the result.
// Resolution errors are returned before the machine is touched.
func (a *App) StartSelected(entry selection.Entry, manualText string) error {
	address, err := selection.Resolve(entry, manualText)
	if err != nil {
		return err
	}

	a.logger.Debug("Starting session",
		zap.String("entry", entry.Label()),
		zap.String("kind", entry.Kind().String()),
		zap.String("address", address),
	)
	return a.machine.Start(address)
}

// StartAddress starts a session with text typed as a manual address.
func (a *App) StartAddress(text string) error {
	return a.StartSelected(selection.ManualAddress(), text)
}

// Stop ends a connected session.
func (a *App) Stop() {
	a.machine.Stop()
}

// State returns the session state.
func (a *App) State() session.State {
	return a.machine.State()
}

// Controls derives the control state for the given selection.
func (a *App) Controls(entry selection.Entry, manualText string) session.Controls {
	_, err := selection.Resolve(entry, manualText)
	return a.machine.Controls(entry.IsManual(), err == nil)
}

// Details describes the connected session.
func (a *App) Details(ctx context.Context) ([]session.Detail, error) {
	return a.machine.Details(ctx)
}

// Subscribe installs o as the status observer and returns the previous one.
func (a *App) Subscribe(o session.Observer) session.Observer {
	return a.machine.SetObserver(o)
}

// Shutdown ends any session and releases background work.
func (a *App) Shutdown(ctx context.Context) {
	a.machine.Shutdown(ctx)
}
