package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "debug", level: "debug", want: zapcore.DebugLevel},
		{name: "info", level: "info", want: zapcore.InfoLevel},
		{name: "warn", level: "warn", want: zapcore.WarnLevel},
		{name: "error", level: "error", want: zapcore.ErrorLevel},
		{name: "unknown falls back to info", level: "chatty", want: zapcore.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	require.NoError(t, Initialize(""))
	assert.False(t, GetLogger().Core().Enabled(zapcore.ErrorLevel))
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer func() { logger = nil }()

	require.NoError(t, Initialize(""))
	assert.True(t, GetLogger().Core().Enabled(zapcore.WarnLevel))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
}

func TestGetLogger_NotInitialized(t *testing.T) {
	logger = nil
	assert.NotNil(t, GetLogger())
}

func TestLogTransition(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	LogTransition(l, "idle", "connecting", 3)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Session transition", entry.Message)
	assert.Equal(t, "idle", entry.ContextMap()["from"])
	assert.Equal(t, uint64(3), entry.ContextMap()["token"])
}

func TestLogWebSocketMessage_DebugOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogWebSocketMessage(zap.New(core), "10.0.0.5:8060", "sent", 1, []byte(`{"request":"authenticate"}`))
	assert.Equal(t, 0, logs.Len())

	core, logs = observer.New(zapcore.DebugLevel)
	LogWebSocketMessage(zap.New(core), "10.0.0.5:8060", "sent", 1, []byte(`{"request":"authenticate"}`))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "text", logs.All()[0].ContextMap()["message_type"])
}

func TestHexDump_Truncates(t *testing.T) {
	data := make([]byte, 300)
	got := hexDump(data)
	assert.Len(t, got, 512+3)
	assert.Equal(t, "", hexDump(nil))
}
