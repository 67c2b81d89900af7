// Package hostapi implements the Host API Surface: the registration
// callables and engine handle scripts see (spec.md §4.8, §6). Binding
// follows the goja global-function idiom used throughout this codebase's
// goja adapters: plain Go methods set via runtime.Set, panicking with
// runtime.NewTypeError/NewGoError on misuse.
package hostapi

import (
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/moduleengine/registry"
)

// ModuleInfo is the read-only shape returned by engine.modules()
// (SPEC_FULL.md §D.5).
type ModuleInfo struct {
	Name           string
	Kind           string
	FramesInterval int
}

// EngineHandle is implemented by the Engine Controller; hostapi binds its
// methods as the script-visible "engine" global without importing the
// engine package (avoiding an import cycle, since engine imports hostapi
// for ModuleInfo and to assert that Controller implements EngineHandle).
type EngineHandle interface {
	SetRunning()
	SetPause()
	SetExiting()
	IsRunning() bool
	IsPause() bool
	IsExiting() bool
	BaseTick() time.Duration
	SetBaseTick(d time.Duration)
	Modules() []ModuleInfo
}

// Bind registers register_module, register_threaded_module, and the
// engine global on rt. Every registration call is forwarded to reg;
// bootstrap errors (duplicate/malformed) are raised as script-level
// GoErrors (panic(rt.NewGoError(err))) so the bootstrap script's own error
// reporting surfaces them.
func Bind(rt *goja.Runtime, reg *registry.Registry, handle EngineHandle) error {
	if err := rt.Set("register_module", registerFn(rt, reg, nil)); err != nil {
		return err
	}
	worker := registry.WorkerModule
	if err := rt.Set("register_threaded_module", registerFn(rt, reg, &worker)); err != nil {
		return err
	}
	return rt.Set("engine", buildEngineObject(rt, handle))
}

func registerFn(rt *goja.Runtime, reg *registry.Registry, forceKind *registry.Kind) func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		d, err := parseDescriptor(rt, call.Argument(0), forceKind)
		if err != nil {
			panic(rt.NewGoError(err))
		}
		if err := reg.Register(d); err != nil {
			panic(rt.NewGoError(err))
		}
		return goja.Undefined()
	}
}

func buildEngineObject(rt *goja.Runtime, handle EngineHandle) *goja.Object {
	obj := rt.NewObject()

	_ = obj.Set("set_running", func(goja.FunctionCall) goja.Value {
		handle.SetRunning()
		return goja.Undefined()
	})
	_ = obj.Set("set_pause", func(goja.FunctionCall) goja.Value {
		handle.SetPause()
		return goja.Undefined()
	})
	_ = obj.Set("set_exiting", func(goja.FunctionCall) goja.Value {
		handle.SetExiting()
		return goja.Undefined()
	})
	_ = obj.Set("is_running", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(handle.IsRunning())
	})
	_ = obj.Set("is_pause", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(handle.IsPause())
	})
	_ = obj.Set("is_exiting", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(handle.IsExiting())
	})
	_ = obj.Set("base_tick", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(handle.BaseTick().Milliseconds())
	})
	_ = obj.Set("set_base_tick", func(call goja.FunctionCall) goja.Value {
		ms := call.Argument(0).ToInteger()
		if ms <= 0 {
			panic(rt.NewTypeError("set_base_tick requires a positive millisecond value"))
		}
		handle.SetBaseTick(time.Duration(ms) * time.Millisecond)
		return goja.Undefined()
	})
	_ = obj.Set("modules", func(goja.FunctionCall) goja.Value {
		infos := handle.Modules()
		out := make([]interface{}, len(infos))
		for i, info := range infos {
			out[i] = map[string]interface{}{
				"name":            info.Name,
				"kind":            info.Kind,
				"frames_interval": info.FramesInterval,
			}
		}
		return rt.ToValue(out)
	})

	return obj
}
