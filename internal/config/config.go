package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mastercactapus/grblstream/grbl"
)

// Config holds CLI configuration for grblstream.
type Config struct {
	Port string
	Baud int

	BufferSize int
	Reserve    int

	PollInterval time.Duration
	ReadTimeout  time.Duration
	SettleDelay  time.Duration

	QueueSize       int
	StartupCommands []string

	LogLevel   string
	RecordPath string

	PendantPort string
	PendantBaud int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:            "/dev/ttyACM0",
		Baud:            grbl.DefaultBaud,
		BufferSize:      grbl.DefaultBufferSize,
		Reserve:         grbl.DefaultReserve,
		PollInterval:    grbl.DefaultPollInterval,
		ReadTimeout:     grbl.DefaultReadTimeout,
		SettleDelay:     grbl.DefaultSettleDelay,
		QueueSize:       grbl.DefaultQueueSize,
		StartupCommands: []string{grbl.CmdUnlock, grbl.CmdInfo},
		LogLevel:        "info",
		PendantBaud:     115200,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
	}
	if c.Reserve < 0 || c.Reserve >= c.BufferSize {
		return fmt.Errorf("reserve must be between 0 and buffer size")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	for _, cmd := range c.StartupCommands {
		if strings.ContainsAny(cmd, "\r\n") {
			return fmt.Errorf("startup command %q contains a newline", cmd)
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	return nil
}

// ResolvePort replaces a `vid:pid` port selector with the name of the
// matching USB serial device.
func (c *Config) ResolvePort() error {
	match, ok := grbl.ParseVIDPID(c.Port)
	if !ok {
		return nil
	}
	name, err := grbl.FindPort(match)
	if err != nil {
		return fmt.Errorf("find port %s: %w", c.Port, err)
	}
	c.Port = name
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// ToEngine converts c to an engine configuration.
func (c Config) ToEngine(log zerolog.Logger) grbl.Config {
	return grbl.Config{
		Port:            c.Port,
		Baud:            c.Baud,
		BufferSize:      c.BufferSize,
		Reserve:         c.Reserve,
		PollInterval:    c.PollInterval,
		ReadTimeout:     c.ReadTimeout,
		SettleDelay:     c.SettleDelay,
		QueueSize:       c.QueueSize,
		StartupCommands: c.StartupCommands,
		Logger:          log,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setReserve allows zero, unlike setInt.
func (s *configSetter) setReserve(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

// setListFromString splits a `;` separated list. Commas are common in G-code.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var list []string
	for _, item := range strings.Split(value, ";") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	*dst = list
}
