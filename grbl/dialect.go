package grbl

import "fmt"

// Real-time command bytes. They bypass the queue and the ledger.
const (
	StatusQuery byte = '?'
	FeedHold    byte = '!'
	CycleStart  byte = '~'
)

// IsRealtime reports whether b is one of the accepted real-time bytes.
func IsRealtime(b byte) bool {
	switch b {
	case StatusQuery, FeedHold, CycleStart:
		return true
	}
	return false
}

// Line commands.
const (
	CmdUnlock = "$X"
	CmdInfo   = "$I"
	CmdHome   = "$H"
)

// Acknowledgment tokens sent by the firmware once a line is consumed.
const (
	// ackOK must be the whole line; output merely containing "ok" is not an
	// acknowledgment.
	ackOK    = "ok"
	ackError = "error:"
)

// jogFeedMM is the jog feed rate in mm/min.
const jogFeedMM = 10000

// JogCommand returns a relative metric jog of one axis.
func JogCommand(axis rune, mm float64) string {
	return fmt.Sprintf("$J=G21G91F%d%c%0.4g", jogFeedMM, axis, mm)
}

// WPosCommand sets the current work coordinate of one axis.
func WPosCommand(axis rune, mm float64) string {
	return fmt.Sprintf("G10L20P1%c%0.4g", axis, mm)
}
