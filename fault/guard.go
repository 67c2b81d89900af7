// Package fault implements the Fault Guard: the boundary every script
// entry point (init, update, UI callbacks) is invoked through. It catches
// panics and errors, applies the per-module disable policy, and emits a
// rate-limited structured log event, mirroring the panic-recovery
// boundary eventloop.Loop wraps around task execution.
package fault

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/moduleengine/internal/enginelog"
)

// Phase names the script entry point a Guard invocation is wrapping, used
// only for log context.
type Phase string

const (
	PhaseInit   Phase = "init"
	PhaseUpdate Phase = "update"
)

// DefaultThreshold is the default consecutive-failure count (per
// spec.md §4.7) that promotes a module from "tick dropped" to
// permanently disabled.
const DefaultThreshold = 16

type moduleState struct {
	consecutiveFailures int
	disabled            bool
}

// Guard applies the Fault Guard policy across every module in an engine
// run. One Guard is shared by the Host Executor and every Worker Executor.
type Guard struct {
	threshold int
	limiter   *catrate.Limiter
	logger    *enginelog.Logger

	mu     sync.Mutex
	states map[string]*moduleState
}

// New builds a Guard. threshold <= 0 uses DefaultThreshold. limiter may be
// nil, in which case fault log lines are never rate-limited. logger may be
// nil, in which case fault events are silently dropped (callers should
// normally pass enginelog.Discard() rather than nil).
func New(threshold int, limiter *catrate.Limiter, logger *enginelog.Logger) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Guard{
		threshold: threshold,
		limiter:   limiter,
		logger:    logger,
		states:    make(map[string]*moduleState),
	}
}

func (g *Guard) state(name string) *moduleState {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.states[name]
	if !ok {
		s = &moduleState{}
		g.states[name] = s
	}
	return s
}

// Disabled reports whether name has been permanently disabled, either by
// an init failure or by exceeding the consecutive-failure threshold on
// update.
func (g *Guard) Disabled(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.states[name]
	return ok && s.disabled
}

// RunInit invokes fn as the module's init phase. Any error or panic
// permanently disables the module (spec.md §4.7: "init failure -> module
// permanently disabled") and is logged; it never propagates to the
// caller's control flow, it is only returned for caller-side bookkeeping
// (e.g. the Worker Executor exits its loop on init failure).
func (g *Guard) RunInit(name string, frame uint64, fn func() error) error {
	err := g.invoke(fn)
	if err == nil {
		return nil
	}

	s := g.state(name)
	g.mu.Lock()
	s.disabled = true
	g.mu.Unlock()

	g.log(name, PhaseInit, frame, err)
	return err
}

// RunUpdate invokes fn as the module's update phase. On success, the
// module's consecutive-failure counter resets to zero. On failure, the
// counter increments; once it reaches the configured threshold the module
// is permanently disabled. Either way the current tick's publish is the
// caller's responsibility to skip when an error is returned (spec.md
// §4.7: "update failure -> the current tick is dropped").
//
// If the module is already disabled, RunUpdate returns an error without
// invoking fn.
func (g *Guard) RunUpdate(name string, frame uint64, fn func() error) error {
	s := g.state(name)

	g.mu.Lock()
	disabled := s.disabled
	g.mu.Unlock()
	if disabled {
		return fmt.Errorf("fault: module %q is disabled", name)
	}

	err := g.invoke(fn)

	g.mu.Lock()
	if err == nil {
		s.consecutiveFailures = 0
		g.mu.Unlock()
		return nil
	}
	s.consecutiveFailures++
	if s.consecutiveFailures >= g.threshold {
		s.disabled = true
	}
	g.mu.Unlock()

	g.log(name, PhaseUpdate, frame, err)
	return err
}

// invoke calls fn, recovering any panic and converting it into an error
// wrapping ErrScriptFault, mirroring eventloop.Loop.safeExecuteFn's
// recovery boundary.
func (g *Guard) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if asErr, ok := r.(error); ok {
				err = fmt.Errorf("%w: %v", ErrScriptFault, asErr)
			} else {
				err = fmt.Errorf("%w: %v", ErrScriptFault, r)
			}
		}
	}()
	if fn == nil {
		return nil
	}
	if ferr := fn(); ferr != nil {
		return fmt.Errorf("%w: %v", ErrScriptFault, ferr)
	}
	return nil
}

func (g *Guard) log(name string, phase Phase, frame uint64, err error) {
	if g.logger == nil {
		return
	}
	if g.limiter != nil {
		if _, ok := g.limiter.Allow(name); !ok {
			return
		}
	}
	g.logger.Err().
		Str("module", name).
		Str("phase", string(phase)).
		Uint64("frame", frame).
		Err(err).
		Log("module fault")
}
