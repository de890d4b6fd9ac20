package grbl

import (
	"context"
	"time"
)

// pollLoop requests a status report every PollInterval.
func (e *Engine) pollLoop(ctx context.Context) error {
	t := time.NewTicker(e.cfg.PollInterval)
	defer t.Stop()

	for {
		if err := e.writeRealtime(StatusQuery); err != nil {
			if err == ErrClosed {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
