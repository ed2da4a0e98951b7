package ecp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/logging"
)

// closeWait is how long Close waits for the device to answer the close frame.
const closeWait = time.Second

// Session is an authenticated control channel with audio routed to this
// host. It is closed exactly once.
type Session struct {
	id          string
	address     string
	destination string
	conn        *websocket.Conn
	logger      *zap.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan Message
	reading bool
	done    chan struct{}

	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, address string, logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		address: address,
		conn:    conn,
		logger:  logger.With(zap.String("session", id)),
		pending: make(map[string]chan Message),
		done:    make(chan struct{}),
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

// Address returns the device address.
func (s *Session) Address() string {
	return s.address
}

// AudioDestination returns the host:port the device streams audio to.
func (s *Session) AudioDestination() string {
	return s.destination
}

// Done is closed when the control channel ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// QueryAudioDevice returns the device's audio configuration document.
func (s *Session) QueryAudioDevice(ctx context.Context) (string, error) {
	resp, err := s.request(ctx, queryAudioDeviceRequest(s.requestID()))
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", NewProtocolError(s.address,
			fmt.Sprintf("query-audio-device failed with status %s %s", resp.Status, resp.StatusMsg), nil)
	}
	return resp.DecodeContent()
}

// Close sends a normal-closure frame, waits briefly for the device to
// acknowledge and closes the socket. Later calls return nil.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(closeWait)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		err = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}

		if s.isReading() {
			timer := time.NewTimer(time.Until(deadline))
			select {
			case <-s.done:
			case <-timer.C:
			case <-ctx.Done():
			}
			timer.Stop()
		}

		if cerr := s.conn.Close(); err == nil && cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}

		s.logger.Info("ECP session closed", zap.String("address", s.address))
	})
	return err
}

// abort closes the socket without a close frame.
func (s *Session) abort() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

// handshake answers the authentication challenge and requests datagram
// audio output. It returns once the device confirms the output.
func (s *Session) handshake(rtpPort int) error {
	for {
		m, err := s.read()
		if err != nil {
			return ClassifyNetworkError(err, s.address)
		}

		switch {
		case m.Notify == MsgAuthenticate:
			if err := s.write(authenticateRequest(s.requestID(), m.ParamChallenge)); err != nil {
				return ClassifyNetworkError(err, s.address)
			}

		case m.Response == MsgAuthenticate:
			if m.Status == StatusUnauthorized {
				return NewAuthError(s.address, m.Status)
			}
			if !m.OK() {
				return NewProtocolError(s.address,
					fmt.Sprintf("authenticate failed with status %s %s", m.Status, m.StatusMsg), nil)
			}

			s.destination = net.JoinHostPort(s.localIP(), strconv.Itoa(rtpPort))
			if err := s.write(setAudioOutputRequest(s.requestID(), s.destination)); err != nil {
				return ClassifyNetworkError(err, s.address)
			}

		case m.Response == MsgSetAudioOutput:
			if !m.OK() {
				return NewProtocolError(s.address,
					fmt.Sprintf("set-audio-output failed with status %s %s", m.Status, m.StatusMsg), nil)
			}
			return nil

		default:
			s.logger.Debug("Ignoring message during handshake", zap.String("kind", m.Kind()))
		}
	}
}

func (s *Session) startReader() {
	s.mu.Lock()
	s.reading = true
	s.mu.Unlock()

	go s.readLoop()
}

func (s *Session) isReading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

func (s *Session) readLoop() {
	defer func() {
		s.mu.Lock()
		for id, ch := range s.pending {
			close(ch)
			delete(s.pending, id)
		}
		close(s.done)
		s.mu.Unlock()
	}()

	for {
		m, err := s.read()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Device closed control channel")
			} else {
				s.logger.Debug("Control channel read ended", zap.Error(err))
			}
			return
		}

		if m.Response == "" || m.ResponseID == "" {
			s.logger.Debug("Unsolicited message",
				zap.String("kind", m.Kind()),
				zap.String("notify", m.Notify),
			)
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[m.ResponseID]
		delete(s.pending, m.ResponseID)
		s.mu.Unlock()

		if ok {
			ch <- m
		}
	}
}

func (s *Session) request(ctx context.Context, m Message) (Message, error) {
	ch := make(chan Message, 1)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return Message{}, ErrNotConnected
	default:
	}
	s.pending[m.RequestID] = ch
	s.mu.Unlock()

	if err := s.write(m); err != nil {
		s.mu.Lock()
		delete(s.pending, m.RequestID)
		s.mu.Unlock()
		return Message{}, ClassifyNetworkError(err, s.address)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Message{}, ErrNotConnected
		}
		return resp, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, m.RequestID)
		s.mu.Unlock()
		return Message{}, ctx.Err()
	}
}

func (s *Session) read() (Message, error) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		logging.LogWebSocketMessage(s.logger, s.address, "recv", mt, data)

		if mt != websocket.TextMessage {
			continue
		}

		m, err := ParseMessage(data)
		if err != nil {
			s.logger.Warn("Dropping malformed message", zap.Error(err))
			continue
		}
		return m, nil
	}
}

func (s *Session) write(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	logging.LogWebSocketMessage(s.logger, s.address, "send", websocket.TextMessage, data)
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) requestID() string {
	return strconv.FormatUint(s.nextID.Add(1), 10)
}

func (s *Session) localIP() string {
	if tcp, ok := s.conn.LocalAddr().(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(s.conn.LocalAddr().String())
	if err != nil {
		return s.conn.LocalAddr().String()
	}
	return host
}
