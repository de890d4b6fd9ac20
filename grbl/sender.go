package grbl

import "context"

// sendLoop writes queued lines as soon as the firmware buffer has room.
func (e *Engine) sendLoop(ctx context.Context) error {
	for {
		var cmd *command
		select {
		case <-ctx.Done():
			return nil
		case cmd = <-e.queue:
		}
		if ctx.Err() != nil {
			cmd.finish(e.closeReason())
			return nil
		}

		err := e.ledger.reserve(ctx, cmd.size(), cmd)
		if err != nil {
			cmd.finish(e.closeReason())
			return nil
		}

		// A reserved line is always written, even if shutdown began meanwhile.
		err = e.w.write([]byte(cmd.line + "\n"))
		if err != nil {
			return &LinkError{Op: "write", Err: err}
		}
		e.log.Debug().Str("line", cmd.line).Int("occupancy", e.ledger.Occupancy()).Msg("sent")
		e.msgs.add(prefixSent + cmd.line)
		cmd.written()
	}
}
