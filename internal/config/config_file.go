package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Port            string   `toml:"port"`
	Baud            int      `toml:"baud"`
	BufferSize      int      `toml:"buffer_size"`
	Reserve         *int     `toml:"reserve"`
	PollInterval    string   `toml:"poll_interval"`
	ReadTimeout     string   `toml:"read_timeout"`
	SettleDelay     string   `toml:"settle_delay"`
	QueueSize       int      `toml:"queue_size"`
	StartupCommands []string `toml:"startup_commands"`
	LogLevel        string   `toml:"log_level"`
	RecordPath      string   `toml:"record_path"`
	PendantPort     string   `toml:"pendant_port"`
	PendantBaud     int      `toml:"pendant_baud"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.grblstream/config.toml, or "" if there is no home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".grblstream", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.Port)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("record", fc.RecordPath, &cfg.RecordPath)
	s.setString("pendant-port", fc.PendantPort, &cfg.PendantPort)

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("buffer-size", fc.BufferSize, &cfg.BufferSize)
	s.setReserve("reserve", fc.Reserve, &cfg.Reserve)
	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("pendant-baud", fc.PendantBaud, &cfg.PendantBaud)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("settle", fc.SettleDelay, &cfg.SettleDelay); err != nil {
		return err
	}

	s.setStrings("startup", fc.StartupCommands, &cfg.StartupCommands)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
