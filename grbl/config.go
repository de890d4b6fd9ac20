package grbl

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults for a stock GRBL 1.1 controller.
const (
	DefaultBaud         = 115200
	DefaultBufferSize   = 127
	DefaultReserve      = 2
	DefaultPollInterval = 300 * time.Millisecond
	DefaultReadTimeout  = 100 * time.Millisecond
	DefaultSettleDelay  = 500 * time.Millisecond
	DefaultQueueSize    = 100000
	DefaultMessageLimit = 10000
)

// Config controls how an Engine talks to the firmware.
type Config struct {
	// Port is a serial device path or a ws:// URL. Used by Open only.
	Port string
	Baud int

	// BufferSize is the firmware's receive buffer capacity in bytes; Reserve
	// bytes of it are never used.
	BufferSize int
	Reserve    int

	// PollInterval between status queries. Zero disables polling.
	PollInterval time.Duration
	ReadTimeout  time.Duration
	SettleDelay  time.Duration

	QueueSize    int
	MessageLimit int

	// StartupCommands are queued once the link has settled.
	StartupCommands []string

	Logger zerolog.Logger
}

// DefaultConfig returns the settings for port with stock GRBL values.
func DefaultConfig(port string) Config {
	return Config{
		Port:            port,
		Baud:            DefaultBaud,
		BufferSize:      DefaultBufferSize,
		Reserve:         DefaultReserve,
		PollInterval:    DefaultPollInterval,
		ReadTimeout:     DefaultReadTimeout,
		SettleDelay:     DefaultSettleDelay,
		QueueSize:       DefaultQueueSize,
		MessageLimit:    DefaultMessageLimit,
		StartupCommands: []string{CmdUnlock, CmdInfo},
		Logger:          zerolog.Nop(),
	}
}

func (c *Config) setDefaults() {
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.Reserve < 0 {
		c.Reserve = 0
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MessageLimit <= 0 {
		c.MessageLimit = DefaultMessageLimit
	}
}
