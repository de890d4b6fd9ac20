package config

import "os"

// ApplyEnvConfig applies configuration from environment variables (GRBLSTREAM_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", os.Getenv("GRBLSTREAM_PORT"), &cfg.Port)
	s.setString("log-level", os.Getenv("GRBLSTREAM_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("record", os.Getenv("GRBLSTREAM_RECORD"), &cfg.RecordPath)
	s.setString("pendant-port", os.Getenv("GRBLSTREAM_PENDANT_PORT"), &cfg.PendantPort)

	if err := s.setIntFromString("baud", os.Getenv("GRBLSTREAM_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("buffer-size", os.Getenv("GRBLSTREAM_BUFFER_SIZE"), &cfg.BufferSize); err != nil {
		return err
	}
	if err := s.setIntFromString("reserve", os.Getenv("GRBLSTREAM_RESERVE"), &cfg.Reserve); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-size", os.Getenv("GRBLSTREAM_QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("pendant-baud", os.Getenv("GRBLSTREAM_PENDANT_BAUD"), &cfg.PendantBaud); err != nil {
		return err
	}

	if err := s.setDuration("poll", os.Getenv("GRBLSTREAM_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", os.Getenv("GRBLSTREAM_READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("settle", os.Getenv("GRBLSTREAM_SETTLE_DELAY"), &cfg.SettleDelay); err != nil {
		return err
	}

	s.setListFromString("startup", os.Getenv("GRBLSTREAM_STARTUP_COMMANDS"), &cfg.StartupCommands)

	return nil
}
