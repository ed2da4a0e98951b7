package session

import "context"

// Handle is an established session returned by a Protocol. Once handed to
// the Machine it is owned by the Machine alone.
type Handle interface {
	// ID identifies the session in logs.
	ID() string
}

// Protocol performs the blocking network work of a session. The Machine
// always calls it from a background worker, never from the caller of Start
// or Stop.
//
// Connect may return a non-nil Handle together with an error when it
// allocated resources before failing; the Machine disconnects that handle.
// Disconnect must treat a nil Handle as a no-op.
type Protocol interface {
	Connect(ctx context.Context, address string) (Handle, error)
	Disconnect(ctx context.Context, h Handle) error
}

// Runner schedules background work. *worker.Pool satisfies it.
type Runner interface {
	Go(task func(ctx context.Context)) error
}

// Ender is implemented by handles whose session can end without Stop, for
// example when the device closes the control channel. Done is closed when
// that happens. The Machine watches it only for the current session.
type Ender interface {
	Done() <-chan struct{}
}

// Detail is one line describing an established session.
type Detail struct {
	Key   string
	Value string
}

// Describer is implemented by handles that can report details of their
// session. Details may use the network and must honour ctx.
type Describer interface {
	Details(ctx context.Context) []Detail
}
