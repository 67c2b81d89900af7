// Package engine implements the Engine Controller: the {Running, Paused,
// Exiting} lifecycle state machine, the host frame loop, and the glue that
// starts the Host and Worker Executors against a frozen Execution Plan
// (spec.md §4.6).
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/moduleengine/enginestate"
	"github.com/joeycumines/moduleengine/exec"
	"github.com/joeycumines/moduleengine/fault"
	"github.com/joeycumines/moduleengine/hostapi"
	"github.com/joeycumines/moduleengine/plan"
	"github.com/joeycumines/moduleengine/registry"
	"github.com/joeycumines/moduleengine/snapshot"
	"github.com/joeycumines/moduleengine/value"
)

var _ hostapi.EngineHandle = (*Controller)(nil)

// Controller is the Engine Controller. It implements hostapi.EngineHandle
// so it can be bound into a bootstrap runtime via hostapi.Bind before the
// module registry is frozen; Start then builds the Execution Plan, Shared
// Snapshot Store, and Host/Worker Executors from whatever was registered
// during bootstrap.
type Controller struct {
	cfg   Config
	state *enginestate.Flag
	guard *fault.Guard

	baseTickNanos atomic.Int64

	mu           sync.Mutex
	plan         *plan.Plan
	store        *snapshot.Store
	host         *exec.HostExecutor
	workers      *exec.Workers
	moduleInfos  []hostapi.ModuleInfo
	frameCounter uint64
}

// New builds a Controller with the given options. It is immediately usable
// as a hostapi.EngineHandle; Start must be called once bootstrap
// registration has finished.
func New(opts ...Option) *Controller {
	cfg := newConfig(opts)
	c := &Controller{
		cfg:   cfg,
		state: enginestate.New(),
		guard: fault.New(cfg.faultThreshold, cfg.limiter, cfg.logger),
	}
	c.baseTickNanos.Store(int64(cfg.baseTick))
	return c
}

// Start freezes reg, builds the Execution Plan and Shared Snapshot Store
// seeded from every module's initial_shared, constructs the Host Executor,
// and spawns one goroutine per worker module (each locked to its own OS
// thread, per spec.md §4.5). rt is the bootstrap runtime; host modules run
// on it for the lifetime of the engine.
func (c *Controller) Start(rt *goja.Runtime, reg *registry.Registry) error {
	descriptors := reg.Freeze()

	p, err := plan.Build(descriptors)
	if err != nil {
		return err
	}

	initial := make(map[string]value.Value, len(descriptors))
	infos := make([]hostapi.ModuleInfo, 0, len(descriptors))
	var workerDescs []registry.Descriptor
	for _, d := range descriptors {
		initial[d.Name] = d.InitialShared
		infos = append(infos, hostapi.ModuleInfo{
			Name:           d.Name,
			Kind:           d.Kind.String(),
			FramesInterval: d.FramesInterval,
		})
		if d.Kind == registry.WorkerModule {
			workerDescs = append(workerDescs, d)
		}
	}
	store := snapshot.New(initial)

	c.mu.Lock()
	c.plan = p
	c.store = store
	c.moduleInfos = infos
	c.host = exec.NewHostExecutor(rt, p, store, c.guard)
	c.workers = exec.NewWorkers(store, c.guard, c.state, c.BaseTick)
	c.mu.Unlock()

	c.workers.Start(workerDescs)
	return nil
}

// FrameHooks are the engine's external collaborators (spec.md §4.6 steps 1
// and 4): windowing/input polling and render submission. The core does not
// specify their internals; either may be nil.
type FrameHooks struct {
	PollInput    func()
	SubmitRender func()
}

// Run drives the host frame loop until the state machine reaches Exiting,
// then joins every worker with the configured deadline and returns. Each
// frame: poll input, pump the Host Executor (skipped while Paused), submit
// render, advance frame_counter, throttle to the current base tick.
func (c *Controller) Run(hooks FrameHooks) error {
	for {
		frameStart := time.Now()

		if hooks.PollInput != nil {
			hooks.PollInput()
		}

		if c.state.IsExiting() {
			stuck := c.workers.Join(c.cfg.joinDeadline)
			for _, name := range stuck {
				c.logJoinTimeout(name)
			}
			return nil
		}

		if !c.state.IsPause() {
			c.mu.Lock()
			host := c.host
			frame := c.frameCounter
			c.mu.Unlock()
			if host != nil {
				if err := host.RunFrame(frame); err != nil {
					return err
				}
			}
		}

		if hooks.SubmitRender != nil {
			hooks.SubmitRender()
		}

		c.mu.Lock()
		c.frameCounter++
		c.mu.Unlock()

		if remaining := c.BaseTick() - time.Since(frameStart); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (c *Controller) logJoinTimeout(name string) {
	c.cfg.logger.Err().
		Str("module", name).
		Err(exec.ErrWorkerJoinTimeout).
		Log("worker join timeout; detaching")
}

// FrameCount returns the number of host frames completed so far.
func (c *Controller) FrameCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCounter
}

// SetRunning implements hostapi.EngineHandle.
func (c *Controller) SetRunning() { c.state.SetRunning() }

// SetPause implements hostapi.EngineHandle.
func (c *Controller) SetPause() { c.state.SetPause() }

// SetExiting implements hostapi.EngineHandle.
func (c *Controller) SetExiting() { c.state.SetExiting() }

// IsRunning implements hostapi.EngineHandle.
func (c *Controller) IsRunning() bool { return c.state.IsRunning() }

// IsPause implements hostapi.EngineHandle.
func (c *Controller) IsPause() bool { return c.state.IsPause() }

// IsExiting implements hostapi.EngineHandle.
func (c *Controller) IsExiting() bool { return c.state.IsExiting() }

// BaseTick implements hostapi.EngineHandle.
func (c *Controller) BaseTick() time.Duration { return time.Duration(c.baseTickNanos.Load()) }

// SetBaseTick implements hostapi.EngineHandle. Changing it rescales every
// running worker's tick pacing immediately (spec.md §4.5).
func (c *Controller) SetBaseTick(d time.Duration) { c.baseTickNanos.Store(int64(d)) }

// Modules implements hostapi.EngineHandle.
func (c *Controller) Modules() []hostapi.ModuleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moduleInfos
}
