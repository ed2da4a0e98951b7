package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/muurk/rplisten/internal/logging"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "RPLISTEN"

const (
	keyLogLevel                  = "log_level"
	keyDiscoveryTimeout          = "discovery.timeout"
	keyDiscoverySSDP             = "discovery.ssdp"
	keyDiscoveryMDNS             = "discovery.mdns"
	keyDiscoveryMDNSService      = "discovery.mdns_service"
	keyDiscoveryProbeConcurrency = "discovery.probe_concurrency"
	keyECPPort                   = "ecp.port"
	keyECPConnectTimeout         = "ecp.connect_timeout"
	keyAudioRTPPort              = "audio.rtp_port"
	keyAudioPlayer               = "audio.player"
	keyAudioPlayerPath           = "audio.player_path"
	keySessionWorkers            = "session.workers"
	keySessionShutdownTimeout    = "session.shutdown_timeout"
	keyNotifications             = "notifications"
	keyMetricsAddr               = "metrics.addr"
)

// flagKeys maps command-line flag names onto configuration keys. Flags
// missing from the set passed to Load are ignored.
var flagKeys = map[string]string{
	"log-level":    keyLogLevel,
	"metrics-addr": keyMetricsAddr,
	"timeout":      keyDiscoveryTimeout,
}

// Config is the fully resolved configuration.
type Config struct {
	LogLevel      string    `mapstructure:"log_level"`
	Discovery     Discovery `mapstructure:"discovery"`
	ECP           ECP       `mapstructure:"ecp"`
	Audio         Audio     `mapstructure:"audio"`
	Session       Session   `mapstructure:"session"`
	Notifications bool      `mapstructure:"notifications"`
	Metrics       Metrics   `mapstructure:"metrics"`
}

// Discovery configures the device scan.
type Discovery struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	SSDP             bool          `mapstructure:"ssdp"`
	MDNS             bool          `mapstructure:"mdns"`
	MDNSService      string        `mapstructure:"mdns_service"`
	ProbeConcurrency int           `mapstructure:"probe_concurrency"`
}

// ECP configures the device control channel.
type ECP struct {
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Audio configures where the stream is sent and how it is played.
type Audio struct {
	RTPPort    int    `mapstructure:"rtp_port"`
	Player     bool   `mapstructure:"player"`
	PlayerPath string `mapstructure:"player_path"`
}

// Session configures the session machine's background work.
type Session struct {
	Workers         int           `mapstructure:"workers"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key with its default value. Keys must be
// known to viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, "")
	v.SetDefault(keyDiscoveryTimeout, 5*time.Second)
	v.SetDefault(keyDiscoverySSDP, true)
	v.SetDefault(keyDiscoveryMDNS, true)
	v.SetDefault(keyDiscoveryMDNSService, "_airplay._tcp")
	v.SetDefault(keyDiscoveryProbeConcurrency, 4)
	v.SetDefault(keyECPPort, 8060)
	v.SetDefault(keyECPConnectTimeout, 10*time.Second)
	v.SetDefault(keyAudioRTPPort, 6970)
	v.SetDefault(keyAudioPlayer, true)
	v.SetDefault(keyAudioPlayerPath, "ffplay")
	v.SetDefault(keySessionWorkers, 4)
	v.SetDefault(keySessionShutdownTimeout, 3*time.Second)
	v.SetDefault(keyNotifications, false)
	v.SetDefault(keyMetricsAddr, "")
}

// Default returns the configuration with no file, environment or flags.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load resolves the configuration. An explicit path must exist; when path
// is empty the default location is used if a file is present there. flags
// may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	explicit := path != ""
	if !explicit {
		p, err := GetConfigPath()
		if err != nil {
			logging.Debug("No default config location", zap.Error(err))
		} else {
			path = p
		}
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			logging.Debug("Loaded config file", zap.String("path", path))
		case explicit || !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%s: %w", keyLogLevel, err)
		}
	}

	for key, d := range map[string]time.Duration{
		keyDiscoveryTimeout:       c.Discovery.Timeout,
		keyECPConnectTimeout:      c.ECP.ConnectTimeout,
		keySessionShutdownTimeout: c.Session.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}

	for key, port := range map[string]int{
		keyECPPort:      c.ECP.Port,
		keyAudioRTPPort: c.Audio.RTPPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s out of range: %d", key, port)
		}
	}

	if c.Discovery.ProbeConcurrency < 1 {
		return fmt.Errorf("%s must be at least 1", keyDiscoveryProbeConcurrency)
	}
	if c.Session.Workers < 1 {
		return fmt.Errorf("%s must be at least 1", keySessionWorkers)
	}
	if !c.Discovery.SSDP && !c.Discovery.MDNS {
		return fmt.Errorf("at least one of %s and %s must be enabled", keyDiscoverySSDP, keyDiscoveryMDNS)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		)
		dc.WeaklyTypedInput = true
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
