// Package enginestate implements the Engine Controller's lifecycle state
// machine: a lock-free atomic CAS state machine modeled directly on
// eventloop.FastState's transition style, shared between the engine and
// exec packages so worker threads can observe transitions without either
// package importing the other.
package enginestate

import (
	"sync"
	"sync/atomic"
)

// State is one of the three lifecycle states from spec.md §4.6.
type State uint32

const (
	// Running is the initial state: the host frame loop dispatches host
	// modules and workers tick normally.
	Running State = iota
	// Paused suspends host update dispatch; workers park on a condition
	// variable.
	Paused
	// Exiting is terminal: workers are signalled, joined with a bounded
	// deadline, and the engine shuts down.
	Exiting
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Exiting:
		return "Exiting"
	default:
		return "Unknown"
	}
}

// Flag is a lock-free {Running, Paused, Exiting} state machine. Reads and
// transitions are atomic CAS operations; a small condition variable is
// layered on top purely to let parked workers wake immediately on resume
// (spec.md §5: "set_pause... causes workers to park on a condition
// variable... Resume is immediate"), rather than polling. The zero Flag is
// invalid; use New.
type Flag struct {
	v    atomic.Uint32
	mu   sync.Mutex
	cond *sync.Cond
}

// New returns a Flag initialized to Running.
func New() *Flag {
	f := &Flag{}
	f.cond = sync.NewCond(&f.mu)
	f.v.Store(uint32(Running))
	return f
}

// Load returns the current state.
func (f *Flag) Load() State { return State(f.v.Load()) }

// SetRunning implements the set_running transition: Paused -> Running;
// Running and Exiting are unaffected (spec.md §4.6's transition table —
// both are a noop for this event).
func (f *Flag) SetRunning() {
	if f.v.CompareAndSwap(uint32(Paused), uint32(Running)) {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	}
}

// SetPause implements the set_pause transition: Running -> Paused; Paused
// and Exiting are unaffected.
func (f *Flag) SetPause() {
	f.v.CompareAndSwap(uint32(Running), uint32(Paused))
}

// SetExiting implements the set_exiting transition: Running -> Exiting and
// Paused -> Exiting; once Exiting, further calls are a noop (Exiting is
// terminal).
func (f *Flag) SetExiting() {
	for {
		cur := State(f.v.Load())
		if cur == Exiting {
			return
		}
		if f.v.CompareAndSwap(uint32(cur), uint32(Exiting)) {
			f.mu.Lock()
			f.cond.Broadcast()
			f.mu.Unlock()
			return
		}
	}
}

// WaitWhilePaused blocks the calling goroutine while the flag reads
// Paused, waking immediately (spurious-wakeup-safe) on any transition out
// of Paused. Workers call this at their control-signal check point
// (spec.md §4.5 step 3a) instead of busy-polling.
func (f *Flag) WaitWhilePaused() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for State(f.v.Load()) == Paused {
		f.cond.Wait()
	}
}

// IsRunning, IsPause, and IsExiting expose Load() == X as predicates,
// matching the script-facing is_running/is_pause/is_exiting names.
func (f *Flag) IsRunning() bool { return f.Load() == Running }
func (f *Flag) IsPause() bool   { return f.Load() == Paused }
func (f *Flag) IsExiting() bool { return f.Load() == Exiting }
