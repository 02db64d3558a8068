package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/vicictl/internal/protocol/frame"
	"github.com/danmuck/vicictl/internal/transport"
)

const (
	OutputYAML = "yaml"
	OutputJSON = "json"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the vicictl client configuration.
type Config struct {
	Network        string
	Address        string
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxPacketBytes uint32
	LogLevel       string
	Output         string
	MetricsAddr    string
	MetricsToken   string
	// MetricsTokenFile is read per request; it takes precedence over MetricsToken.
	MetricsTokenFile string
}

type fileConfig struct {
	Network          string `toml:"network"`
	Address          string `toml:"address"`
	DialTimeout      string `toml:"dial_timeout"`
	ReadTimeout      string `toml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	MaxPacketBytes   int64  `toml:"max_packet_bytes"`
	LogLevel         string `toml:"log_level"`
	Output           string `toml:"output"`
	MetricsAddr      string `toml:"metrics_addr"`
	MetricsToken     string `toml:"metrics_token"`
	MetricsTokenFile string `toml:"metrics_token_file"`
}

func Default() Config {
	t := transport.DefaultConfig()
	return Config{
		Network:        t.Network,
		Address:        t.Address,
		DialTimeout:    t.DialTimeout,
		MaxPacketBytes: t.Limits.MaxPacketBytes,
		LogLevel:       "info",
		Output:         OutputYAML,
	}
}

// Load reads path and overrides defaults with every key the file defines.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load vicictl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	if meta.IsDefined("network") {
		cfg.Network = strings.ToLower(strings.TrimSpace(raw.Network))
	}
	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("dial_timeout") {
		if cfg.DialTimeout, err = parseDuration("dial_timeout", raw.DialTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("read_timeout") {
		if cfg.ReadTimeout, err = parseDuration("read_timeout", raw.ReadTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("max_packet_bytes") {
		if raw.MaxPacketBytes <= 0 || raw.MaxPacketBytes > int64(^uint32(0)) {
			return Config{}, fmt.Errorf("%w: max_packet_bytes %d", ErrInvalidConfig, raw.MaxPacketBytes)
		}
		cfg.MaxPacketBytes = uint32(raw.MaxPacketBytes)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.ToLower(strings.TrimSpace(raw.Output))
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("metrics_token") {
		cfg.MetricsToken = strings.TrimSpace(raw.MetricsToken)
	}
	if meta.IsDefined("metrics_token_file") {
		cfg.MetricsTokenFile = strings.TrimSpace(raw.MetricsTokenFile)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func (c Config) Validate() error {
	switch c.Network {
	case "unix", "tcp", "tcp4", "tcp6":
	default:
		return fmt.Errorf("%w: network %q", ErrInvalidConfig, c.Network)
	}
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: missing address", ErrInvalidConfig)
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	switch c.Output {
	case OutputYAML, OutputJSON:
	default:
		return fmt.Errorf("%w: output %q", ErrInvalidConfig, c.Output)
	}
	return nil
}

// Transport maps the client config onto transport settings.
func (c Config) Transport() transport.Config {
	t := transport.DefaultConfig()
	t.Network = c.Network
	t.Address = c.Address
	t.DialTimeout = c.DialTimeout
	t.ReadTimeout = c.ReadTimeout
	t.WriteTimeout = c.WriteTimeout
	t.Limits = frame.Limits{MaxPacketBytes: c.MaxPacketBytes}
	return t
}
