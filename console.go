package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/grblstream/grbl"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive terminal: send lines, see responses and state changes",
	Long: strings.TrimSpace(`
Every line typed is queued for the controller. A line consisting of only
?, ! or ~ is sent immediately as a real-time command. Type quit to exit.`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		input := make(chan string)
		go func() {
			defer close(input)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				input <- scanner.Text()
			}
		}()

		out := cmd.OutOrStdout()
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		var lastState string
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sess.Done():
				printMessages(out, sess.TakeMessages())
				return sess.Err()
			case line, ok := <-input:
				if !ok || strings.TrimSpace(line) == "quit" {
					return nil
				}
				if err := submitConsoleLine(sess.Engine, line); err != nil {
					fmt.Fprintln(out, "error:", err)
				}
			case <-t.C:
				printMessages(out, sess.TakeMessages())
				if rep := sess.LatestStatus(); rep != nil && rep.State != lastState {
					lastState = rep.State
					fmt.Fprintln(out, "state:", rep.String())
				}
			}
		}
	},
}

// submitConsoleLine routes single real-time characters around the queue.
func submitConsoleLine(e *grbl.Engine, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if len(line) == 1 && grbl.IsRealtime(line[0]) {
		return e.SubmitRealtime(line[0])
	}
	return e.SubmitLine(line)
}

func printMessages(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
