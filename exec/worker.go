package exec

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/moduleengine/enginestate"
	"github.com/joeycumines/moduleengine/fault"
	"github.com/joeycumines/moduleengine/registry"
	"github.com/joeycumines/moduleengine/snapshot"
)

// Workers runs every worker module on its own dedicated OS thread, each
// with a fresh goja.Runtime (spec.md §4.5). No thread pool: one goroutine,
// locked to its own OS thread for the module's lifetime, per registered
// worker module.
type Workers struct {
	store    *snapshot.Store
	guard    *fault.Guard
	state    *enginestate.Flag
	baseTick func() time.Duration

	wg      sync.WaitGroup
	handles []*workerHandle
}

type workerHandle struct {
	name string
	done chan struct{}
}

// NewWorkers builds a Workers coordinator. baseTick is consulted once per
// worker tick, so changes via the engine's set_base_tick rescale every
// running worker without restarting them.
func NewWorkers(store *snapshot.Store, guard *fault.Guard, state *enginestate.Flag, baseTick func() time.Duration) *Workers {
	return &Workers{
		store:    store,
		guard:    guard,
		state:    state,
		baseTick: baseTick,
	}
}

// Start spawns one goroutine per descriptor, each locked to its own OS
// thread. descriptors must all be registry.WorkerModule; Start does not
// filter by kind.
func (w *Workers) Start(descriptors []registry.Descriptor) {
	for _, d := range descriptors {
		h := &workerHandle{name: d.Name, done: make(chan struct{})}
		w.handles = append(w.handles, h)
		w.wg.Add(1)
		go w.run(d, h)
	}
}

// Join blocks until every worker has returned or deadline elapses,
// whichever comes first. It returns the names of workers still running at
// the deadline (the caller should log ErrWorkerJoinTimeout for each and
// detach, per spec.md §5).
func (w *Workers) Join(deadline time.Duration) []string {
	allDone := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		return nil
	case <-time.After(deadline):
	}

	var stuck []string
	for _, h := range w.handles {
		select {
		case <-h.done:
		default:
			stuck = append(stuck, h.name)
		}
	}
	return stuck
}

func (w *Workers) run(d registry.Descriptor, h *workerHandle) {
	defer w.wg.Done()
	defer close(h.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := goja.New()

	initFn, err := materializeCallable(rt, d.InitSrc)
	if err != nil {
		w.guard.RunInit(d.Name, 0, func() error { return err })
		return
	}
	updateFn, err := materializeCallable(rt, d.UpdateSrc)
	if err != nil {
		w.guard.RunInit(d.Name, 0, func() error { return err })
		return
	}

	local := newScriptObject(rt, d.InitialLocal)

	if err := w.guard.RunInit(d.Name, 0, func() error {
		_, err := initFn(goja.Undefined(), local)
		return err
	}); err != nil {
		return
	}

	var workerFrame uint64
	for {
		switch w.state.Load() {
		case enginestate.Exiting:
			return
		case enginestate.Paused:
			w.state.WaitWhilePaused()
			continue
		}

		if w.guard.Disabled(d.Name) {
			return
		}

		tickStart := time.Now()

		if int(workerFrame)%d.FramesInterval != 0 {
			workerFrame++
			w.sleepRemaining(tickStart)
			continue
		}

		ctx, err := buildContext(rt, w.store, d.Name, d.Deps, d.HasShared, local)
		if err == nil {
			updateErr := w.guard.RunUpdate(d.Name, workerFrame, func() error {
				_, err := updateFn(goja.Undefined(), ctx)
				return err
			})
			if updateErr == nil && d.HasShared {
				_ = republish(w.store, d.Name, ctx)
			}
		}

		workerFrame++
		w.sleepRemaining(tickStart)
	}
}

// sleepRemaining sleeps out the rest of the current base-tick slot,
// accounting for time already spent this iteration (spec.md §4.5's
// "sleep to maintain the module's target cadence").
func (w *Workers) sleepRemaining(tickStart time.Time) {
	period := w.baseTick()
	elapsed := time.Since(tickStart)
	if remaining := period - elapsed; remaining > 0 {
		time.Sleep(remaining)
	}
}

// materializeCallable loads decompiled function source (registry.
// Descriptor.InitSrc/UpdateSrc) into rt, implementing spec.md §4.5 step 1
// ("load the module body into the worker VM"). A goja.Callable is bound
// to the runtime that produced it and cannot be invoked from another
// goroutine, so workers cannot reuse the bootstrap runtime's callables
// directly; they re-evaluate the original source in their own VM instead.
func materializeCallable(rt *goja.Runtime, src string) (goja.Callable, error) {
	v, err := rt.RunString("(" + src + ")")
	if err != nil {
		return nil, fmt.Errorf("exec: loading worker function: %w", err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("exec: worker function source did not evaluate to a callable")
	}
	return fn, nil
}
