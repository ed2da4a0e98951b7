package ecp

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultPort is the device's External Control Protocol port.
	DefaultPort = 8060

	// DefaultRTPPort is the local UDP port the device streams audio to.
	DefaultRTPPort = 6970

	// SessionPath is the websocket endpoint of the control channel.
	SessionPath = "/ecp-session"

	// Subprotocol is the websocket subprotocol spoken on SessionPath.
	Subprotocol = "ecp-2"

	// OriginHeader and Origin identify the client kind to the device.
	OriginHeader = "Sec-WebSocket-Origin"
	Origin       = "Android"

	// DefaultHandshakeTimeout bounds dial plus authentication when the
	// caller's context has no earlier deadline.
	DefaultHandshakeTimeout = 10 * time.Second
)

// Client opens private listening sessions on devices.
type Client struct {
	// Port is the ECP port dialled on the device.
	Port int
	// RTPPort is announced to the device as the audio destination port.
	RTPPort int
	// HandshakeTimeout bounds Connect.
	HandshakeTimeout time.Duration

	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewClient creates a client with default ports.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		Port:             DefaultPort,
		RTPPort:          DefaultRTPPort,
		HandshakeTimeout: DefaultHandshakeTimeout,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
			Subprotocols:     []string{Subprotocol},
		},
		logger: logger,
	}
}

// URL returns the control channel URL for address.
func (c *Client) URL(address string) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(address, strconv.Itoa(c.Port)),
		Path:   SessionPath,
	}
	return u.String()
}

// Connect dials the device, answers the authentication challenge and
// routes the device audio to this host. The returned Session stays open
// until Disconnect.
func (c *Client) Connect(ctx context.Context, address string) (*Session, error) {
	target := c.URL(address)
	c.logger.Info("Opening ECP session", zap.String("url", target))

	header := http.Header{}
	header.Set(OriginHeader, Origin)

	conn, _, err := c.dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, ClassifyNetworkError(err, address)
	}

	if proto := conn.Subprotocol(); proto != Subprotocol {
		c.logger.Warn("Device did not confirm subprotocol",
			zap.String("expected", Subprotocol),
			zap.String("got", proto),
		)
	}

	s := newSession(conn, address, c.logger)

	deadline := time.Now().Add(c.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	// Cancelling ctx unblocks the pending read.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})

	err = s.handshake(c.RTPPort)
	if !stop() && err == nil {
		err = ClassifyNetworkError(ctx.Err(), address)
	}
	if err != nil {
		s.abort()
		return nil, err
	}

	_ = conn.SetReadDeadline(time.Time{})
	s.startReader()

	c.logger.Info("ECP session established",
		zap.String("session", s.ID()),
		zap.String("address", address),
		zap.String("audio_destination", s.AudioDestination()),
	)

	return s, nil
}

// Disconnect closes s. A nil or already closed session is a no-op.
func (c *Client) Disconnect(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	return s.Close(ctx)
}
