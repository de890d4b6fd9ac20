package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mastercactapus/grblstream/grbl"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.Level() != zerolog.InfoLevel {
		t.Errorf("Level() = %v, want info", cfg.Level())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"zero baud", func(c *Config) { c.Baud = 0 }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
		{"reserve fills buffer", func(c *Config) { c.Reserve = c.BufferSize }},
		{"negative reserve", func(c *Config) { c.Reserve = -1 }},
		{"negative poll", func(c *Config) { c.PollInterval = -time.Second }},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"multi-line startup", func(c *Config) { c.StartupCommands = []string{"$X\n$H"} }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestResolvePortPlainPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = "ws://localhost:8989/ws"
	if err := cfg.ResolvePort(); err != nil {
		t.Fatalf("ResolvePort() = %v", err)
	}
	if cfg.Port != "ws://localhost:8989/ws" {
		t.Errorf("Port = %q", cfg.Port)
	}
}

func TestToEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = "/dev/ttyUSB0"
	cfg.Reserve = 5
	ec := cfg.ToEngine(zerolog.Nop())

	if ec.Port != "/dev/ttyUSB0" || ec.Reserve != 5 || ec.BufferSize != grbl.DefaultBufferSize {
		t.Errorf("ToEngine() = %+v", ec)
	}
	if !reflect.DeepEqual(ec.StartupCommands, []string{grbl.CmdUnlock, grbl.CmdInfo}) {
		t.Errorf("StartupCommands = %q", ec.StartupCommands)
	}
}

func TestApplyFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
port = "/dev/ttyUSB3"
baud = 250000
reserve = 0
poll_interval = "500ms"
startup_commands = ["$X", "G21"]
log_level = "warn"
record_path = "session.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) || FileExists(filepath.Join(dir, "missing.toml")) {
		t.Fatal("FileExists wrong")
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Baud = 9600
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{"baud": true}); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.Port != "/dev/ttyUSB3" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Baud != 9600 {
		t.Errorf("Baud = %d, flag value should win", cfg.Baud)
	}
	if cfg.Reserve != 0 {
		t.Errorf("Reserve = %d, want 0", cfg.Reserve)
	}
	if cfg.BufferSize != grbl.DefaultBufferSize {
		t.Errorf("BufferSize = %d, unset key should keep default", cfg.BufferSize)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if !reflect.DeepEqual(cfg.StartupCommands, []string{"$X", "G21"}) {
		t.Errorf("StartupCommands = %q", cfg.StartupCommands)
	}
	if cfg.Level() != zerolog.WarnLevel || cfg.RecordPath != "session.db" {
		t.Errorf("LogLevel = %q, RecordPath = %q", cfg.LogLevel, cfg.RecordPath)
	}
}

func TestApplyFileConfigBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyFileConfig(&cfg, FileConfig{SettleDelay: "soon"}, map[string]bool{})
	if err == nil {
		t.Error("ApplyFileConfig() = nil, want error")
	}
}

func TestLoadFileConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("port = [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("LoadFileConfig() = nil, want error")
	}
}
