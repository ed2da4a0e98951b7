package ecp

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_URL(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, "ws://192.168.1.9:8060/ecp-session", c.URL("192.168.1.9"))
	assert.Equal(t, "ws://[fe80::1]:8060/ecp-session", c.URL("fe80::1"))
}

func TestClient_ConnectAndDisconnect(t *testing.T) {
	device := newFakeDevice()
	c, host := startFakeDevice(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := c.Connect(ctx, host)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, host, s.Address())
	assert.True(t, strings.HasSuffix(s.AudioDestination(), ":6970"), s.AudioDestination())

	msgs := device.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgAuthenticate, msgs[0].Request)
	assert.Equal(t, AuthResponse(testChallenge), msgs[0].ParamResponse)
	assert.Equal(t, MsgSetAudioOutput, msgs[1].Request)
	assert.Equal(t, AudioOutputDatagram, msgs[1].ParamAudioOutput)
	assert.Equal(t, s.AudioDestination(), msgs[1].ParamDevname)
	assert.NotEqual(t, msgs[0].RequestID, msgs[1].RequestID)

	device.mu.Lock()
	assert.Equal(t, Origin, device.origin)
	device.mu.Unlock()

	require.NoError(t, c.Disconnect(ctx, s))

	select {
	case code := <-device.closed:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(time.Second):
		t.Fatal("device never saw a close frame")
	}

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session not done after close")
	}

	assert.NoError(t, c.Disconnect(ctx, s), "second disconnect is a no-op")
	assert.NoError(t, c.Disconnect(ctx, nil), "nil disconnect is a no-op")
}

func TestClient_ConnectFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(d *fakeDevice)
		wantType ErrorType
		wantIs   error
	}{
		{
			name:     "auth rejected",
			setup:    func(d *fakeDevice) { d.authStatus = StatusUnauthorized },
			wantType: ErrTypeAuth,
			wantIs:   ErrAuthFailed,
		},
		{
			name:     "auth server error",
			setup:    func(d *fakeDevice) { d.authStatus = "500" },
			wantType: ErrTypeProtocol,
		},
		{
			name:     "audio output refused",
			setup:    func(d *fakeDevice) { d.audioStatus = "403" },
			wantType: ErrTypeProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := newFakeDevice()
			tt.setup(device)
			c, host := startFakeDevice(t, device)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			s, err := c.Connect(ctx, host)
			require.Error(t, err)
			assert.Nil(t, s)

			var ecpErr *Error
			require.True(t, errors.As(err, &ecpErr), "got %T", err)
			assert.Equal(t, tt.wantType, ecpErr.Type)
			assert.False(t, ecpErr.Retryable)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestClient_ConnectTimeout(t *testing.T) {
	device := newFakeDevice()
	device.silent = true
	c, host := startFakeDevice(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Connect(ctx, host)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var ecpErr *Error
	require.ErrorAs(t, err, &ecpErr)
	assert.Equal(t, ErrTypeTimeout, ecpErr.Type)
	assert.True(t, IsRetryable(err))
}

func TestClient_ConnectRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	c := NewClient(zap.NewNop())
	c.Port = port

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = c.Connect(ctx, "127.0.0.1")
	require.Error(t, err)

	var ecpErr *Error
	require.ErrorAs(t, err, &ecpErr)
	assert.Equal(t, ErrTypeConnectionRefused, ecpErr.Type)
}

func TestSession_QueryAudioDevice(t *testing.T) {
	device := newFakeDevice()
	c, host := startFakeDevice(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := c.Connect(ctx, host)
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	doc, err := s.QueryAudioDevice(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAudioDevice, doc)
}

func TestSession_QueryAfterClose(t *testing.T) {
	device := newFakeDevice()
	c, host := startFakeDevice(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := c.Connect(ctx, host)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))
	<-s.Done()

	_, err = s.QueryAudioDevice(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}
