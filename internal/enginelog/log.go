// Package enginelog wires this engine's structured log events to
// logiface, backed by stumpy's zero-allocation JSON writer, following the
// construction idiom shown in logiface-stumpy's own examples.
package enginelog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Event is the concrete logiface event type this engine logs with.
type Event = stumpy.Event

// Logger is the concrete logger type threaded through engine, exec, and
// fault.
type Logger = logiface.Logger[*Event]

// New builds a Logger writing newline-delimited JSON to w at the given
// minimum level. A nil w defaults to os.Stderr.
func New(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return logiface.New[*Event](
		logiface.WithLevel[*Event](level),
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
	)
}

// Discard returns a Logger that drops every event; used as the default
// when callers do not configure one, and in tests that don't assert on
// log output.
func Discard() *Logger {
	return New(io.Discard, logiface.LevelDisabled)
}
