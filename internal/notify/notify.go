// Package notify raises desktop notifications for session status changes.
package notify

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/ecp"
	"github.com/muurk/rplisten/internal/session"
)

// Title heads every notification.
const Title = "Private Listening"

// SendFunc shows one notification.
type SendFunc func(title, message string) error

// Notifier turns status events into desktop notifications. It implements
// session.Observer.
type Notifier struct {
	send   SendFunc
	logger *zap.Logger

	mu      sync.Mutex
	current string
}

var _ session.Observer = (*Notifier)(nil)

// New creates a Notifier backed by the platform notification service.
func New(logger *zap.Logger) *Notifier {
	beeep.AppName = "rplisten"
	return NewWithSender(func(title, message string) error {
		return beeep.Notify(title, message, "")
	}, logger)
}

// NewWithSender creates a Notifier that shows notifications through send.
func NewWithSender(send SendFunc, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{send: send, logger: logger.Named("notify")}
}

// OnStatus notifies when a session starts, ends or fails to start.
// Connecting events are silent.
func (n *Notifier) OnStatus(e session.Event) {
	message, ok := n.message(e)
	if !ok {
		return
	}

	if err := n.send(Title, message); err != nil {
		n.logger.Warn("Notification failed", zap.Error(err))
	}
}

func (n *Notifier) message(e session.Event) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch e.Status {
	case session.Connected:
		n.current = e.Address
		return fmt.Sprintf("Listening on %s", e.Address), true

	case session.NotConnected:
		previous := n.current
		n.current = ""
		if e.Err != nil {
			return fmt.Sprintf("Could not connect to %s: %s", e.Address, Describe(e.Err)), true
		}
		if previous != "" {
			return fmt.Sprintf("Stopped listening on %s", previous), true
		}
	}
	return "", false
}

// Describe renders a connect failure for people rather than logs.
func Describe(err error) string {
	if errors.Is(err, session.ErrConnectTimeout) {
		return "Device not responding (timeout)"
	}
	return ecp.ShortMessage(err)
}

// Retryable reports whether starting the same session again may succeed.
func Retryable(err error) bool {
	return errors.Is(err, session.ErrConnectTimeout) || ecp.IsRetryable(err)
}
