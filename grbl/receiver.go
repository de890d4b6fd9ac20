package grbl

import (
	"context"
	"fmt"
	"strings"
)

// receiveLoop reads responses until shutdown or a link failure.
func (e *Engine) receiveLoop(ctx context.Context) error {
	err := readLines(ctx, e.link, e.handleLine)
	if err != nil {
		return &LinkError{Op: "read", Err: err}
	}
	return nil
}

// handleLine classifies one trimmed response line.
func (e *Engine) handleLine(line string) {
	switch {
	case line == ackOK || strings.HasPrefix(line, ackError):
		e.acknowledge(line)
	case isReportLine(line):
		rep, err := ParseReport(line)
		if err != nil {
			e.log.Warn().Err(err).Msg("bad status report")
			e.msgs.add(prefixWarning + err.Error())
			return
		}
		e.publish(rep)
	default:
		e.log.Debug().Str("line", line).Msg("recv")
		e.msgs.add(prefixRecv + line)
	}
}

func (e *Engine) acknowledge(line string) {
	p, err := e.ledger.releaseOldest()
	if err != nil {
		e.log.Warn().Str("response", line).Msg("acknowledgment with no pending line")
		e.msgs.add(prefixWarning + fmt.Sprintf("%v (%s)", err, line))
		return
	}

	if strings.HasPrefix(line, ackError) {
		var sent string
		if p.cmd != nil {
			sent = p.cmd.line
		}
		cerr := &CommandError{Line: sent, Response: line}
		e.log.Warn().Err(cerr).Msg("command rejected")
		e.msgs.add(prefixRecv + line)
		p.cmd.finish(cerr)
		return
	}
	p.cmd.finish(nil)
}
