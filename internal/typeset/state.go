package typeset

import "fmt"

// State is the lifecycle of one wait.
type State int

// Waiter states. Ready and TimedOut are terminal until the next Start.
const (
	Idle State = iota
	Polling
	Ready
	TimedOut
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
