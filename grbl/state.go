package grbl

// State is the lifecycle state of an Engine.
type State int32

const (
	StateConnecting State = iota
	StateRunning
	StateShuttingDown
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
