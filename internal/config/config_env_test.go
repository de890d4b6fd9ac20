package config

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"GRBLSTREAM_PORT":             "/dev/ttyUSB1",
				"GRBLSTREAM_LOG_LEVEL":        "debug",
				"GRBLSTREAM_RECORD":           "/tmp/rec.db",
				"GRBLSTREAM_PENDANT_PORT":     "/dev/ttyUSB2",
				"GRBLSTREAM_BAUD":             "57600",
				"GRBLSTREAM_BUFFER_SIZE":      "255",
				"GRBLSTREAM_RESERVE":          "0",
				"GRBLSTREAM_QUEUE_SIZE":       "50",
				"GRBLSTREAM_PENDANT_BAUD":     "9600",
				"GRBLSTREAM_POLL_INTERVAL":    "1s",
				"GRBLSTREAM_READ_TIMEOUT":     "50ms",
				"GRBLSTREAM_SETTLE_DELAY":     "2s",
				"GRBLSTREAM_STARTUP_COMMANDS": "$X; G21,G90 ;",
			},
			changed: map[string]bool{},
			initial: Config{Reserve: 2},
			expected: Config{
				Port:            "/dev/ttyUSB1",
				LogLevel:        "debug",
				RecordPath:      "/tmp/rec.db",
				PendantPort:     "/dev/ttyUSB2",
				Baud:            57600,
				BufferSize:      255,
				Reserve:         0,
				QueueSize:       50,
				PendantBaud:     9600,
				PollInterval:    time.Second,
				ReadTimeout:     50 * time.Millisecond,
				SettleDelay:     2 * time.Second,
				StartupCommands: []string{"$X", "G21,G90"},
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"GRBLSTREAM_PORT": "/dev/ttyUSB1",
				"GRBLSTREAM_BAUD": "57600",
			},
			changed:  map[string]bool{"port": true},
			initial:  Config{Port: "/dev/flag"},
			expected: Config{Port: "/dev/flag", Baud: 57600},
		},
		{
			name:     "returns error for invalid duration",
			envVars:  map[string]string{"GRBLSTREAM_POLL_INTERVAL": "fast"},
			changed:  map[string]bool{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "returns error for invalid int",
			envVars:  map[string]string{"GRBLSTREAM_BUFFER_SIZE": "big"},
			changed:  map[string]bool{},
			expected: Config{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
