package hostapi

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/joeycumines/moduleengine/registry"
	"github.com/joeycumines/moduleengine/value"
)

// parseDescriptor converts a script-side descriptor object (the argument
// to register_module/register_threaded_module) into a registry.Descriptor.
// forceKind overrides the kind field (register_threaded_module always
// forces WorkerModule, per spec.md §4.8).
func parseDescriptor(rt *goja.Runtime, raw goja.Value, forceKind *registry.Kind) (registry.Descriptor, error) {
	obj, ok := raw.(*goja.Object)
	if ok == false || obj == nil {
		return registry.Descriptor{}, fmt.Errorf("%w: descriptor must be an object", registry.ErrMalformedModule)
	}

	if err := rejectLegacySchema(obj); err != nil {
		return registry.Descriptor{}, err
	}

	d := registry.Descriptor{
		Name:           stringField(obj, "name"),
		FramesInterval: 1,
	}

	if forceKind != nil {
		d.Kind = *forceKind
	} else if kindStr := stringField(obj, "kind"); kindStr == "WorkerModule" {
		d.Kind = registry.WorkerModule
	} else {
		d.Kind = registry.HostModule
	}

	if v := obj.Get("frames_interval"); v != nil && !goja.IsUndefined(v) {
		d.FramesInterval = int(v.ToInteger())
	}

	deps, err := stringArrayField(rt, obj, "deps")
	if err != nil {
		return registry.Descriptor{}, fmt.Errorf("%w: %v", registry.ErrMalformedModule, err)
	}
	d.Deps = deps

	sharedRaw := obj.Get("shared_state")
	if sharedRaw == nil || goja.IsUndefined(sharedRaw) {
		sharedRaw = obj.Get("initial_shared")
	}
	if sharedRaw != nil && !goja.IsUndefined(sharedRaw) && !goja.IsNull(sharedRaw) {
		shared, err := value.ToNeutral(sharedRaw)
		if err != nil {
			return registry.Descriptor{}, fmt.Errorf("%w: shared_state: %v", registry.ErrMalformedModule, err)
		}
		d.InitialShared = shared
		d.HasShared = true
	} else {
		d.InitialShared = value.Null()
	}

	localRaw := obj.Get("local_state")
	if localRaw == nil || goja.IsUndefined(localRaw) {
		localRaw = obj.Get("initial_local")
	}
	if localRaw != nil && !goja.IsUndefined(localRaw) && !goja.IsNull(localRaw) {
		local, err := value.ToNeutral(localRaw)
		if err != nil {
			return registry.Descriptor{}, fmt.Errorf("%w: local_state: %v", registry.ErrMalformedModule, err)
		}
		d.InitialLocal = local
	} else {
		d.InitialLocal = value.Null()
	}

	initFn, initSrc, err := callableField(obj, "init")
	if err != nil {
		return registry.Descriptor{}, err
	}
	d.InitFn = initFn
	d.InitSrc = initSrc

	updateFn, updateSrc, err := callableField(obj, "update")
	if err != nil {
		return registry.Descriptor{}, err
	}
	d.UpdateFn = updateFn
	d.UpdateSrc = updateSrc

	return d, nil
}

// rejectLegacySchema implements SPEC_FULL.md §D.3: the legacy
// kind: "Init"|"Core" + state schema is rejected outright rather than
// silently accepted alongside the shared_state/local_state form.
func rejectLegacySchema(obj *goja.Object) error {
	kindStr := stringField(obj, "kind")
	if kindStr != "Init" && kindStr != "Core" {
		return nil
	}
	stateRaw := obj.Get("state")
	if stateRaw == nil || goja.IsUndefined(stateRaw) {
		return nil
	}
	return fmt.Errorf("%w: legacy kind/state schema (kind=%q) is not supported; use shared_state/local_state", registry.ErrMalformedModule, kindStr)
}

func stringField(obj *goja.Object, name string) string {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func stringArrayField(rt *goja.Runtime, obj *goja.Object, name string) ([]string, error) {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	arrObj, ok := v.(*goja.Object)
	if !ok || arrObj.ClassName() != "Array" {
		return nil, fmt.Errorf("field %q: expected an array of strings", name)
	}
	length := int(arrObj.Get("length").ToInteger())
	out := make([]string, 0, length)
	for i := 0; i < length; i++ {
		elem := arrObj.Get(fmt.Sprintf("%d", i))
		s := strings.TrimSpace(elem.String())
		if s == "" {
			return nil, fmt.Errorf("field %q: element %d is empty", name, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// callableField returns both the callable bound to rt (used directly by
// host modules) and its decompiled source text (used by worker modules to
// rematerialize an equivalent function in a fresh VM; see
// registry.Descriptor.InitSrc/UpdateSrc).
func callableField(obj *goja.Object, name string) (goja.Callable, string, error) {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil, "", fmt.Errorf("%w: missing %q", registry.ErrMalformedModule, name)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q is not callable", registry.ErrMalformedModule, name)
	}
	return fn, v.String(), nil
}
