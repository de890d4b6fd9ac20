package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/grblstream/grbl"
)

var streamCmd = &cobra.Command{
	Use:   "stream FILE",
	Short: "Stream a G-code file and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}

		sess, err := openSession(ctx)
		if err != nil {
			f.Close()
			return err
		}
		defer sess.Close()

		job := grbl.NewJob(ctx, sess.Engine, filepath.Base(args[0]), f)
		if err := job.Start(); err != nil {
			return err
		}
		log.Info().Str("file", args[0]).Msg("streaming")

		go func() {
			t := time.NewTicker(time.Second)
			defer t.Stop()
			for {
				select {
				case <-sess.Done():
					return
				case <-t.C:
				}
				for _, line := range sess.TakeMessages() {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				stat := job.Status()
				ev := log.Info().
					Int("completed", stat.Completed).
					Int("read", stat.Read).
					Int("buffered", sess.Occupancy())
				if rep := sess.LatestStatus(); rep != nil {
					ev = ev.Str("state", rep.State)
				}
				ev.Msgf("%.f%%", stat.Progress()*100)
			}
		}()

		stat, err := job.Wait(ctx)
		if ctx.Err() != nil {
			log.Warn().Msg("interrupted, holding feed")
			if err := sess.CommandFeedHold(context.Background()); err != nil {
				log.Error().Err(err).Msg("feed hold")
			}
			job.Close()
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("job %s: %w", stat.Name, err)
		}
		for _, line := range sess.TakeMessages() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		log.Info().Int("lines", stat.Completed).Msg("job complete")
		return nil
	},
}
