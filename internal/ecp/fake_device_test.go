package ecp

import (
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChallenge = "k3Jd9sLq0wPx"

const testAudioDevice = `<audio-device><capabilities><all-destinations>datagram</all-destinations></capabilities></audio-device>`

// fakeDevice is a minimal ECP-2 endpoint.
type fakeDevice struct {
	authStatus  string
	audioStatus string
	silent      bool

	mu       sync.Mutex
	origin   string
	received []Message
	closed   chan int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		authStatus:  StatusOK,
		audioStatus: StatusOK,
		closed:      make(chan int, 1),
	}
}

func (d *fakeDevice) messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.received))
	copy(out, d.received)
	return out
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}

	d.mu.Lock()
	d.origin = r.Header.Get(OriginHeader)
	d.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if d.silent {
		_, _, _ = conn.ReadMessage()
		return
	}

	_ = conn.WriteJSON(Message{Notify: MsgAuthenticate, ParamChallenge: testChallenge, Timestamp: "1234"})

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				d.closed <- ce.Code
			}
			return
		}

		d.mu.Lock()
		d.received = append(d.received, m)
		d.mu.Unlock()

		switch m.Request {
		case MsgAuthenticate:
			status, msg := d.authStatus, "OK"
			if m.ParamResponse != AuthResponse(testChallenge) {
				status = StatusUnauthorized
			}
			if status == StatusUnauthorized {
				msg = "Unauthorized"
			}
			_ = conn.WriteJSON(Message{Response: MsgAuthenticate, ResponseID: m.RequestID, Status: status, StatusMsg: msg})
		case MsgSetAudioOutput:
			_ = conn.WriteJSON(Message{Response: MsgSetAudioOutput, ResponseID: m.RequestID, Status: d.audioStatus, StatusMsg: "OK"})
		case MsgQueryAudioDevice:
			_ = conn.WriteJSON(Message{Notify: "volume-changed"})
			_ = conn.WriteJSON(Message{
				Response:    MsgQueryAudioDevice,
				ResponseID:  m.RequestID,
				Status:      StatusOK,
				StatusMsg:   "OK",
				ContentData: base64.StdEncoding.EncodeToString([]byte(testAudioDevice)),
			})
		}
	}
}

// startFakeDevice serves d and returns a client pointed at it plus the
// device address.
func startFakeDevice(t *testing.T, d *fakeDevice) (*Client, string) {
	t.Helper()

	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := NewClient(zap.NewNop())
	c.Port = port
	return c, host
}
