// Package exec implements the Host Executor and Worker Executor: the two
// places a module's init/update hooks actually run, both invoking through
// the Fault Guard and exchanging state only via the Shared Snapshot Store.
package exec

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/joeycumines/moduleengine/fault"
	"github.com/joeycumines/moduleengine/plan"
	"github.com/joeycumines/moduleengine/registry"
	"github.com/joeycumines/moduleengine/snapshot"
	"github.com/joeycumines/moduleengine/value"
)

// HostExecutor runs every host module in dependency order on the frame
// that owns rt (spec.md §4.4). It must only ever be driven from the
// thread that owns rt; nothing in this type is safe for concurrent
// RunFrame calls.
type HostExecutor struct {
	rt    *goja.Runtime
	plan  *plan.Plan
	store *snapshot.Store
	guard *fault.Guard

	initialized map[string]bool
	locals      map[string]*goja.Object
}

// NewHostExecutor builds a HostExecutor bound to rt, p, store, and guard.
// store must already contain a cell for every module in p.Descriptors
// that declares HasShared (snapshot.New seeded from each Descriptor's
// InitialShared).
func NewHostExecutor(rt *goja.Runtime, p *plan.Plan, store *snapshot.Store, guard *fault.Guard) *HostExecutor {
	return &HostExecutor{
		rt:          rt,
		plan:        p,
		store:       store,
		guard:       guard,
		initialized: make(map[string]bool),
		locals:      make(map[string]*goja.Object),
	}
}

// RunFrame executes one host frame: for every host module in topological
// order, skip if disabled or off-cadence, otherwise init (once) then
// update under the Fault Guard, republishing shared state declared by the
// module on a successful update.
func (h *HostExecutor) RunFrame(frame uint64) error {
	for _, name := range h.plan.HostOrder {
		d := h.plan.Descriptors[name]
		if h.guard.Disabled(name) {
			continue
		}
		if int(frame)%d.FramesInterval != 0 {
			continue
		}

		local := h.localObject(d)

		if !h.initialized[name] {
			h.initialized[name] = true
			if err := h.runInit(d, local, frame); err != nil {
				continue
			}
		}
		if h.guard.Disabled(name) {
			continue
		}

		ctx, err := h.buildContext(d, local)
		if err != nil {
			continue
		}

		if err := h.runUpdate(d, ctx, frame); err != nil {
			continue
		}

		if d.HasShared {
			if err := h.republish(d, ctx); err != nil {
				return fmt.Errorf("exec: module %q: %w", name, err)
			}
		}
	}
	return nil
}

func (h *HostExecutor) localObject(d registry.Descriptor) *goja.Object {
	if obj, ok := h.locals[d.Name]; ok {
		return obj
	}
	obj := newScriptObject(h.rt, d.InitialLocal)
	h.locals[d.Name] = obj
	return obj
}

func (h *HostExecutor) runInit(d registry.Descriptor, local *goja.Object, frame uint64) error {
	initFn, ok := d.InitFn.(goja.Callable)
	if !ok {
		return nil
	}
	return h.guard.RunInit(d.Name, frame, func() error {
		_, err := initFn(goja.Undefined(), local)
		return err
	})
}

func (h *HostExecutor) runUpdate(d registry.Descriptor, ctx *goja.Object, frame uint64) error {
	updateFn, ok := d.UpdateFn.(goja.Callable)
	if !ok {
		return fmt.Errorf("exec: module %q has no callable update", d.Name)
	}
	return h.guard.RunUpdate(d.Name, frame, func() error {
		_, err := updateFn(goja.Undefined(), ctx)
		return err
	})
}

// buildContext materializes the update context table: self/local_state,
// shared_state (if declared), and one field per dependency populated from
// the latest snapshot at entry (spec.md §4.4, §6).
func (h *HostExecutor) buildContext(d registry.Descriptor, local *goja.Object) (*goja.Object, error) {
	return buildContext(h.rt, h.store, d.Name, d.Deps, d.HasShared, local)
}

func (h *HostExecutor) republish(d registry.Descriptor, ctx *goja.Object) error {
	return republish(h.store, d.Name, ctx)
}

// buildContext is shared by the Host and Worker executors: both populate
// the same context table shape (spec.md §6), differing only in which
// store and runtime they read/write through.
func buildContext(rt *goja.Runtime, store *snapshot.Store, name string, deps []string, hasShared bool, local *goja.Object) (*goja.Object, error) {
	ctx := rt.NewObject()
	_ = ctx.Set("self", local)
	_ = ctx.Set("local_state", local)

	if hasShared {
		shared, _, err := store.Read(name)
		if err != nil {
			return nil, err
		}
		_ = ctx.Set("shared_state", value.FromNeutral(rt, shared))
	}

	for _, dep := range deps {
		depVal, _, err := store.Read(dep)
		if err != nil {
			return nil, err
		}
		_ = ctx.Set(dep, value.FromNeutral(rt, depVal))
	}

	return ctx, nil
}

// republish converts ctx.shared_state back to a neutral value and
// publishes it under name. A post-update value that no longer converts
// cleanly is not published and the cell keeps its last published value;
// the conversion error is dropped here, so it is neither logged nor counted
// by the Fault Guard.
func republish(store *snapshot.Store, name string, ctx *goja.Object) error {
	sharedVal := ctx.Get("shared_state")
	neutral, err := value.ToNeutral(sharedVal)
	if err != nil {
		return nil
	}
	_, err = store.Publish(name, neutral)
	return err
}

// newScriptObject builds a fresh script-side object seeded from a neutral
// value, defaulting to an empty object when the value is null (a module
// that declares no initial_local still gets a mutable self table).
func newScriptObject(rt *goja.Runtime, v value.Value) *goja.Object {
	if v.IsNull() {
		return rt.NewObject()
	}
	fv := value.FromNeutral(rt, v)
	if obj, ok := fv.(*goja.Object); ok {
		return obj
	}
	return rt.NewObject()
}
