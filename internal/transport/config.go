package transport

import (
	"time"

	"github.com/danmuck/vicictl/internal/protocol/frame"
)

const (
	DefaultNetwork = "unix"
	DefaultAddress = "/var/run/charon.vici"
)

// Config defines connection defaults. Zero read/write timeouts leave blocking
// reads unbounded unless the caller's context carries a deadline.
type Config struct {
	Network      string
	Address      string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Limits       frame.Limits
}

func DefaultConfig() Config {
	return Config{
		Network:     DefaultNetwork,
		Address:     DefaultAddress,
		DialTimeout: 5 * time.Second,
		Limits:      frame.DefaultLimits(),
	}
}
