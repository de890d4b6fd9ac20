package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/mastercactapus/grblstream/grbl"
	"github.com/mastercactapus/grblstream/internal/config"
	"github.com/mastercactapus/grblstream/internal/history"
)

var (
	cfg     = config.DefaultConfig()
	cfgPath string
	log     = newLogger(zerolog.InfoLevel)
)

var rootCmd = &cobra.Command{
	Use:   "grblstream",
	Short: "Stream G-code to GRBL controllers with character-counting flow control",
	Long: strings.TrimSpace(`
Stream G-code to a GRBL controller over a serial port (or a ws:// serial
bridge), keeping the controller's receive buffer full without overflowing it.

Configuration is read from $HOME/.grblstream/config.toml, then GRBLSTREAM_*
environment variables, then flags.`),
	Example: strings.TrimSpace(`
  grblstream stream --port /dev/ttyACM0 part.nc
  grblstream console --port 2a03:0043
  grblstream gui --record session.db`),
	Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.grblstream/config.toml)")
	f.StringVarP(&cfg.Port, "port", "p", cfg.Port, "serial device, USB vid:pid, or ws:// bridge URL")
	f.IntVarP(&cfg.Baud, "baud", "b", cfg.Baud, "baud rate")
	f.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "controller receive buffer size in bytes")
	f.IntVar(&cfg.Reserve, "reserve", cfg.Reserve, "bytes of the receive buffer to keep free")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "status report interval (0 disables)")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "serial read timeout")
	f.DurationVar(&cfg.SettleDelay, "settle", cfg.SettleDelay, "delay after opening the port before sending")
	f.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "maximum queued lines")
	f.StringArrayVar(&cfg.StartupCommands, "startup", cfg.StartupCommands, "command sent after connecting (repeatable)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&cfg.RecordPath, "record", cfg.RecordPath, "record status reports and messages to this SQLite file")
	f.StringVar(&cfg.PendantPort, "pendant-port", cfg.PendantPort, "serial device of a jog pendant (optional)")
	f.IntVar(&cfg.PendantBaud, "pendant-baud", cfg.PendantBaud, "pendant baud rate")

	rootCmd.AddCommand(streamCmd, consoleCmd, guiCmd, portsCmd, historyCmd)
}

// loadConfig layers the config file, then the environment, under explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := config.ApplyEnvConfig(&cfg, changed); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log = newLogger(cfg.Level())
	log.Debug().Interface("config", cfg).Msg("configuration")
	return nil
}

func newLogger(level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// session is an open controller plus its optional recorder and pendant.
type session struct {
	*grbl.Controller

	db     *history.DB
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// teed holds message lines the recorder has already drained.
	mx   sync.Mutex
	teed []string
}

func openSession(ctx context.Context) (*session, error) {
	if err := cfg.ResolvePort(); err != nil {
		return nil, err
	}

	e, err := grbl.Open(ctx, cfg.ToEngine(log))
	if err != nil {
		return nil, err
	}
	s := &session{Controller: grbl.NewController(e)}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if cfg.RecordPath != "" {
		s.db, err = history.Open(cfg.RecordPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open recording: %w", err)
		}
		rec := &history.Recorder{
			DB:       s.db,
			Interval: 200 * time.Millisecond,
			Log:      log,
			Tee: func(line string) {
				s.mx.Lock()
				s.teed = append(s.teed, line)
				s.mx.Unlock()
			},
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			rec.Run(s.ctx, e)
		}()
		log.Info().Str("path", cfg.RecordPath).Msg("recording")
	}

	if cfg.PendantPort != "" {
		link, err := grbl.OpenSerial(cfg.PendantPort, cfg.PendantBaud, cfg.ReadTimeout)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open pendant: %w", err)
		}
		p := grbl.NewPendant(s.Controller, log)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer link.Close()
			if err := p.Run(s.ctx, link); err != nil {
				log.Error().Err(err).Msg("pendant")
			}
		}()
		log.Info().Str("port", cfg.PendantPort).Msg("pendant connected")
	}

	return s, nil
}

// TakeMessages returns the message lines not yet shown to the user.
func (s *session) TakeMessages() []string {
	if s.db == nil {
		return s.Controller.TakeMessages()
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	lines := s.teed
	s.teed = nil
	return lines
}

func (s *session) Close() {
	s.Controller.Close()
	s.cancel()
	s.wg.Wait()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close recording")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("grblstream")
		os.Exit(1)
	}
}
