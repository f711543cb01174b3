// Package clock schedules deferred callbacks.
//
// The typesetting waiter and the copy-label revert are built on one-shot
// callbacks, the same primitive as event-loop timers. Production code uses
// Real; tests drive a Manual clock so every timer fires deterministically.
package clock

import "time"

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}

// Clock schedules f to run once after d.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real schedules callbacks on the runtime timer heap.
type Real struct{}

// Compile-time interface check.
var _ Clock = Real{}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
