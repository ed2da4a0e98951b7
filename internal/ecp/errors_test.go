package ecp

import (
	"errors"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
		wantCause     error
	}{
		{
			name:          "deadline",
			err:           os.ErrDeadlineExceeded,
			wantType:      ErrTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "dns",
			err:           &net.DNSError{Name: "roku.local", Err: "no such host"},
			wantType:      ErrTypeDNS,
			wantRetryable: false,
		},
		{
			name:          "refused",
			err:           &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			wantType:      ErrTypeConnectionRefused,
			wantRetryable: true,
		},
		{
			name:          "host unreachable",
			err:           &net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH},
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
		{
			name:          "wrapped in url error",
			err:           &url.Error{Op: "Get", URL: "ws://x", Err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}},
			wantType:      ErrTypeConnectionRefused,
			wantRetryable: true,
			wantCause:     syscall.ECONNREFUSED,
		},
		{
			name:          "bad handshake",
			err:           websocket.ErrBadHandshake,
			wantType:      ErrTypeProtocol,
			wantRetryable: false,
		},
		{
			name:          "generic",
			err:           errors.New("boom"),
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.5")
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantRetryable, got.Retryable)
			assert.Equal(t, "10.0.0.5", got.Address)
			cause := tt.wantCause
			if cause == nil {
				cause = tt.err
			}
			assert.ErrorIs(t, got, cause)
		})
	}

	assert.Nil(t, ClassifyNetworkError(nil, ""))
}

func TestErrorHelpers(t *testing.T) {
	auth := NewAuthError("10.0.0.5", StatusUnauthorized)
	assert.ErrorIs(t, auth, ErrAuthFailed)
	assert.False(t, IsRetryable(auth))
	assert.Equal(t, "Device rejected authentication", ShortMessage(auth))
	assert.Contains(t, auth.Error(), "Authentication Error")

	proto := NewProtocolError("10.0.0.5", "bad status", nil)
	assert.Equal(t, "Protocol Error: bad status", proto.Error())

	plain := errors.New("plain")
	assert.Equal(t, "plain", ShortMessage(plain))
	assert.False(t, IsRetryable(plain))

	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}

func TestParseMessage(t *testing.T) {
	m, err := ParseMessage([]byte(`{"notify":"authenticate","param-challenge":"abc","timestamp":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, "notify", m.Kind())
	assert.Equal(t, "abc", m.ParamChallenge)

	m, err = ParseMessage([]byte(`{"response":"query-audio-device","response-id":"3","status":"200","status-msg":"OK","content-data":"PGEvPg=="}`))
	require.NoError(t, err)
	assert.Equal(t, "response", m.Kind())
	assert.True(t, m.OK())
	content, err := m.DecodeContent()
	require.NoError(t, err)
	assert.Equal(t, "<a/>", content)

	_, err = ParseMessage([]byte(`not json`))
	assert.Error(t, err)

	_, err = Message{ContentData: "%%%"}.DecodeContent()
	assert.Error(t, err)

	assert.Equal(t, "unknown", Message{}.Kind())
	assert.Equal(t, "request", setAudioOutputRequest("1", "10.0.0.2:6970").Kind())
}
