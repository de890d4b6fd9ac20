package grbl

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on an engine that has shut down.
	ErrClosed = errors.New("engine closed")

	// ErrQueueClosed is returned when a line is submitted after shutdown has started.
	ErrQueueClosed = errors.New("command queue closed")

	// ErrProtocolDesync indicates an acknowledgment arrived with nothing pending.
	ErrProtocolDesync = errors.New("protocol desync: acknowledgment with no pending line")

	// ErrNotRealtime is returned by SubmitRealtime for bytes other than ?, ! and ~.
	ErrNotRealtime = errors.New("not a real-time command")

	// ErrLineTooLong is returned for lines that can never fit the firmware buffer.
	ErrLineTooLong = errors.New("line exceeds firmware buffer")

	// ErrInvalidLine is returned for lines containing a line terminator.
	ErrInvalidLine = errors.New("line contains newline")
)

// ConnectionError is returned by Open when the link cannot be opened or configured.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connect %s: %v", e.Port, e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// LinkError is a read or write failure on an established link. It is fatal to the engine.
type LinkError struct {
	Op  string
	Err error
}

func (e *LinkError) Error() string { return fmt.Sprintf("link %s: %v", e.Op, e.Err) }
func (e *LinkError) Unwrap() error { return e.Err }

// ParseError describes a malformed status report line.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse report %q: %s", e.Line, e.Reason) }

// CommandError is the firmware's negative acknowledgment (`error:N`) for a line.
type CommandError struct {
	Line     string
	Response string
}

func (e *CommandError) Error() string {
	if e.Line == "" {
		return "firmware " + e.Response
	}
	return fmt.Sprintf("firmware %s for %q", e.Response, e.Line)
}
