package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/rplisten/internal/session"
)

func TestRecorder_Session(t *testing.T) {
	r := New()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.phase.WithLabelValues("idle")))

	r.Transition(session.Idle, session.PhaseConnecting)
	r.Transition(session.PhaseConnecting, session.PhaseConnected)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("idle", "connecting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.phase.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.phase.WithLabelValues("idle")))

	r.ConnectFailed(errors.New("x"))
	r.StaleCallback()
	r.StaleCallback()
	r.Rejected()
	r.Disconnected(nil)
	r.Disconnected(errors.New("closed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.connectFails))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.staleCallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.disconnects.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.disconnects.WithLabelValues("error")))
}

func TestRecorder_Discovery(t *testing.T) {
	tests := []struct {
		name     string
		timedOut bool
		err      error
		outcome  string
	}{
		{name: "ok", outcome: "ok"},
		{name: "timeout", timedOut: true, outcome: "timeout"},
		{name: "error", err: errors.New("no interface"), outcome: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.Discovery(1500*time.Millisecond, 3, tt.timedOut, tt.err)

			assert.Equal(t, 1.0, testutil.ToFloat64(r.discoveries.WithLabelValues(tt.outcome)))
			assert.Equal(t, 3.0, testutil.ToFloat64(r.devicesFound))
		})
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.Rejected()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "rplisten_session_rejected_starts_total 1"), text)
	assert.Contains(t, text, `rplisten_session_phase{phase="idle"} 1`)
}
