package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the default config location at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("LOCALAPPDATA", dir)
	return dir
}

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
	assert.Equal(t, appName, filepath.Base(dir))

	switch runtime.GOOS {
	case "windows":
		assert.True(t, strings.Contains(dir, "AppData") || strings.Contains(dir, "Local"), dir)
	case "darwin":
		assert.Contains(t, dir, ".config")
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", appName), dir)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", appName, "config.yaml"), path)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Discovery.Timeout)
	assert.True(t, cfg.Discovery.SSDP)
	assert.True(t, cfg.Discovery.MDNS)
	assert.Equal(t, "_airplay._tcp", cfg.Discovery.MDNSService)
	assert.Equal(t, 4, cfg.Discovery.ProbeConcurrency)
	assert.Equal(t, 8060, cfg.ECP.Port)
	assert.Equal(t, 10*time.Second, cfg.ECP.ConnectTimeout)
	assert.Equal(t, 6970, cfg.Audio.RTPPort)
	assert.True(t, cfg.Audio.Player)
	assert.Equal(t, "ffplay", cfg.Audio.PlayerPath)
	assert.Equal(t, 4, cfg.Session.Workers)
	assert.Equal(t, 3*time.Second, cfg.Session.ShutdownTimeout)
	assert.False(t, cfg.Notifications)
	assert.Empty(t, cfg.Metrics.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_DefaultLocation(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("default location follows XDG_CONFIG_HOME on Linux only")
	}

	base := isolate(t)
	dir := filepath.Join(base, appName)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	writeFile(t, dir, "ecp:\n  port: 8061\n")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 8061, cfg.ECP.Port)
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := writeFile(t, t.TempDir(), `
log_level: debug
discovery:
  timeout: 2s
  mdns: false
  probe_concurrency: 8
ecp:
  connect_timeout: 1500ms
audio:
  rtp_port: 7000
  player: false
session:
  workers: 2
notifications: true
metrics:
  addr: ":9100"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Discovery.Timeout)
	assert.False(t, cfg.Discovery.MDNS)
	assert.True(t, cfg.Discovery.SSDP)
	assert.Equal(t, 8, cfg.Discovery.ProbeConcurrency)
	assert.Equal(t, 1500*time.Millisecond, cfg.ECP.ConnectTimeout)
	assert.Equal(t, 8060, cfg.ECP.Port)
	assert.Equal(t, 7000, cfg.Audio.RTPPort)
	assert.False(t, cfg.Audio.Player)
	assert.Equal(t, 2, cfg.Session.Workers)
	assert.True(t, cfg.Notifications)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	path := writeFile(t, t.TempDir(), "discovery:\n  timeout: 2s\nmetrics:\n  addr: \":9100\"\nlog_level: warn\n")
	t.Setenv("RPLISTEN_DISCOVERY_TIMEOUT", "3s")
	t.Setenv("RPLISTEN_METRICS_ADDR", ":9200")
	t.Setenv("RPLISTEN_AUDIO_PLAYER", "false")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "")
	flags.String("metrics-addr", "", "")
	flags.Duration("timeout", 0, "")
	require.NoError(t, flags.Parse([]string{"--timeout", "7s"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, cfg.Discovery.Timeout, "flag beats env and file")
	assert.Equal(t, ":9200", cfg.Metrics.Addr, "env beats file")
	assert.Equal(t, "warn", cfg.LogLevel, "unset flag does not override file")
	assert.False(t, cfg.Audio.Player)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		missing bool
		wantErr string
	}{
		{name: "missing explicit file", missing: true, wantErr: "config file"},
		{name: "invalid yaml", body: "discovery: [", wantErr: "read config"},
		{name: "bad duration", body: "discovery:\n  timeout: soon\n", wantErr: "decode config"},
		{name: "zero timeout", body: "ecp:\n  connect_timeout: 0s\n", wantErr: "ecp.connect_timeout must be positive"},
		{name: "port out of range", body: "audio:\n  rtp_port: 70000\n", wantErr: "audio.rtp_port out of range"},
		{name: "no workers", body: "session:\n  workers: 0\n", wantErr: "session.workers"},
		{name: "no scanners", body: "discovery:\n  ssdp: false\n  mdns: false\n", wantErr: "at least one of"},
		{name: "unknown level", env: map[string]string{"RPLISTEN_LOG_LEVEL": "loud"}, wantErr: "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "absent.yaml")
			if !tt.missing {
				path = writeFile(t, dir, tt.body)
			}

			_, err := Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
