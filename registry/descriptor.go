// Package registry implements the Module Registry: the two-phase bootstrap
// protocol that collects module descriptors from script-side registration
// calls, then freezes them for the lifetime of the engine run.
package registry

import "github.com/joeycumines/moduleengine/value"

// Kind distinguishes where a module's update runs.
type Kind uint8

const (
	// HostModule updates on the main loop, in dependency order.
	HostModule Kind = iota
	// WorkerModule updates on a dedicated background OS thread.
	WorkerModule
)

func (k Kind) String() string {
	switch k {
	case HostModule:
		return "host"
	case WorkerModule:
		return "worker"
	default:
		return "unknown"
	}
}

// Callable is an opaque script-side function reference. The registry and
// planner never invoke it directly; they only carry it through to the
// executors, which know how to call into the owning VM.
type Callable interface{}

// Descriptor is the immutable contract a script declares via
// register_module/register_threaded_module. Once registration completes
// and the registry freezes, a Descriptor never changes.
type Descriptor struct {
	Name           string
	Kind           Kind
	Deps           []string
	FramesInterval int
	InitialShared  value.Value
	InitialLocal   value.Value
	InitFn         Callable
	UpdateFn       Callable

	// InitSrc and UpdateSrc are the decompiled source text of InitFn and
	// UpdateFn (via the ECMAScript Function.prototype.toString that goja
	// implements against the original source). Host modules never consult
	// these; worker modules load them into a fresh, dedicated VM per
	// spec.md §4.5's "load the module body into the worker VM" step,
	// since a goja.Callable is bound to the runtime that created it and
	// cannot cross goroutines.
	InitSrc   string
	UpdateSrc string

	// HasShared records whether initial_shared was non-null at
	// registration. Per spec.md §4.4, a host module only republishes its
	// shared state after an update if it declared shared state at all.
	HasShared bool
}

// Clone returns a Descriptor with its neutral-value fields deep-copied.
// Deps is copied but InitFn/UpdateFn are opaque references shared as-is
// (they are owned by the scripting VM, not this package).
func (d Descriptor) Clone() Descriptor {
	deps := make([]string, len(d.Deps))
	copy(deps, d.Deps)
	d.Deps = deps
	d.InitialShared = d.InitialShared.Clone()
	d.InitialLocal = d.InitialLocal.Clone()
	return d
}
