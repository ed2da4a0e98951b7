package player

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/ecp"
	"github.com/muurk/rplisten/internal/session"
)

// Connector opens and closes control channel sessions. *ecp.Client
// satisfies it.
type Connector interface {
	Connect(ctx context.Context, address string) (*ecp.Session, error)
	Disconnect(ctx context.Context, s *ecp.Session) error
}

// Protocol implements session.Protocol on top of a Connector and, when
// Enabled, starts a local player for every established session.
type Protocol struct {
	connector Connector
	config    Config
	logger    *zap.Logger

	// Enabled turns the local player on.
	Enabled bool

	newPlayer func(Config, *zap.Logger) *Player
}

// NewProtocol creates a Protocol. The player is started only when enabled
// is true and its binary is found.
func NewProtocol(connector Connector, config Config, enabled bool, logger *zap.Logger) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{
		connector: connector,
		config:    config,
		logger:    logger,
		Enabled:   enabled,
		newPlayer: New,
	}
}

// Handle is the session handle produced by Protocol.
type Handle struct {
	Session *ecp.Session
	Player  *Player
}

var (
	_ session.Ender     = (*Handle)(nil)
	_ session.Describer = (*Handle)(nil)
)

// ID returns the control channel session id.
func (h *Handle) ID() string {
	if h == nil || h.Session == nil {
		return ""
	}
	return h.Session.ID()
}

// Done is closed when the device ends the control channel. It is nil
// without a session.
func (h *Handle) Done() <-chan struct{} {
	if h == nil || h.Session == nil {
		return nil
	}
	return h.Session.Done()
}

// Details reports the session id, the audio destination, the device audio
// configuration and the player state.
func (h *Handle) Details(ctx context.Context) []session.Detail {
	if h == nil {
		return nil
	}

	var details []session.Detail
	if h.Session != nil {
		device, err := h.Session.QueryAudioDevice(ctx)
		if err != nil {
			device = "unknown (" + ecp.ShortMessage(err) + ")"
		}
		details = append(details,
			session.Detail{Key: "Session", Value: h.Session.ID()},
			session.Detail{Key: "Audio to", Value: h.Session.AudioDestination()},
			session.Detail{Key: "Audio device", Value: device},
		)
	}

	state := "disabled"
	if h.Player != nil {
		state = "exited"
		if h.Player.Running() {
			state = "running"
		}
	}
	return append(details, session.Detail{Key: "Player", Value: state})
}

// Connect opens the control channel and starts the player. Player failures
// are logged and never fail the connect.
func (p *Protocol) Connect(ctx context.Context, address string) (session.Handle, error) {
	s, err := p.connector.Connect(ctx, address)
	if err != nil {
		return nil, err
	}

	h := &Handle{Session: s}

	if p.Enabled {
		pl := p.newPlayer(p.config, p.logger.Named("player"))
		if err := pl.Start(ctx); err != nil {
			if errors.Is(err, ErrNotFound) {
				p.logger.Warn("Audio player not found, session continues without local playback",
					zap.String("path", p.config.Path))
			} else {
				p.logger.Warn("Audio player failed to start", zap.Error(err))
			}
		} else {
			h.Player = pl
		}
	}

	return h, nil
}

// Disconnect stops the player and closes the control channel. A nil
// handle is a no-op.
func (p *Protocol) Disconnect(ctx context.Context, h session.Handle) error {
	if h == nil {
		return nil
	}

	ph, ok := h.(*Handle)
	if !ok {
		return fmt.Errorf("unexpected session handle %T", h)
	}
	if ph == nil {
		return nil
	}

	var errs []error
	if ph.Player != nil {
		if err := ph.Player.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.connector.Disconnect(ctx, ph.Session); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
