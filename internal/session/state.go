package session

import "fmt"

// Phase is the lifecycle position of the single session.
type Phase int

const (
	// Idle means no session exists and none is being established
	Idle Phase = iota
	// PhaseConnecting means a connect request is outstanding
	PhaseConnecting
	// PhaseConnected means a session handle is held
	PhaseConnected
)

// String returns a human-readable name for the phase
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Status maps the phase to the status shown to the user.
func (p Phase) Status() Status {
	switch p {
	case PhaseConnecting:
		return Connecting
	case PhaseConnected:
		return Connected
	default:
		return NotConnected
	}
}

// State is a read-only snapshot of the machine. The session handle itself is
// never part of the snapshot.
type State struct {
	Phase Phase
	// Address is the target of a Connecting or Connected session.
	Address string
	// Token identifies the most recent connect request.
	Token uint64
}

// String returns "phase" or "phase(address)"
func (s State) String() string {
	if s.Address == "" {
		return s.Phase.String()
	}
	return fmt.Sprintf("%s(%s)", s.Phase, s.Address)
}
