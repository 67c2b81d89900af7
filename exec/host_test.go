package exec

import (
	"bytes"
	"testing"

	"github.com/dop251/goja"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/moduleengine/fault"
	"github.com/joeycumines/moduleengine/internal/enginelog"
	"github.com/joeycumines/moduleengine/plan"
	"github.com/joeycumines/moduleengine/registry"
	"github.com/joeycumines/moduleengine/snapshot"
	"github.com/joeycumines/moduleengine/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCallable(t *testing.T, rt *goja.Runtime, src string) goja.Callable {
	t.Helper()
	v, err := rt.RunString(src)
	require.NoError(t, err)
	fn, ok := goja.AssertFunction(v)
	require.True(t, ok)
	return fn
}

func newGuard() *fault.Guard {
	return fault.New(fault.DefaultThreshold, nil, enginelog.Discard())
}

func TestHostExecutor_TwoModuleCounter(t *testing.T) {
	rt := goja.New()

	a := registry.Descriptor{
		Name:           "A",
		Kind:           registry.HostModule,
		FramesInterval: 1,
		InitialShared:  value.Map(value.MapEntry{Key: "n", Value: value.Integer(0)}),
		HasShared:      true,
		InitFn:         mustCallable(t, rt, `(function(self){})`),
		UpdateFn:       mustCallable(t, rt, `(function(ctx){ ctx.shared_state.n += 1; })`),
	}
	b := registry.Descriptor{
		Name:           "B",
		Kind:           registry.HostModule,
		Deps:           []string{"A"},
		FramesInterval: 1,
		InitialShared:  value.Map(value.MapEntry{Key: "m", Value: value.Integer(0)}),
		HasShared:      true,
		InitFn:         mustCallable(t, rt, `(function(self){})`),
		UpdateFn:       mustCallable(t, rt, `(function(ctx){ ctx.shared_state.m = ctx.A.n; })`),
	}

	p, err := plan.Build([]registry.Descriptor{a, b})
	require.NoError(t, err)

	store := snapshot.New(map[string]value.Value{
		"A": a.InitialShared,
		"B": b.InitialShared,
	})

	h := NewHostExecutor(rt, p, store, newGuard())

	for frame := uint64(0); frame < 10; frame++ {
		require.NoError(t, h.RunFrame(frame))
	}

	av, _, err := store.Read("A")
	require.NoError(t, err)
	n, _ := av.Get("n")
	assert.Equal(t, int64(10), n.AsInteger())

	bv, _, err := store.Read("B")
	require.NoError(t, err)
	m, _ := bv.Get("m")
	assert.Equal(t, int64(10), m.AsInteger())
}

func TestHostExecutor_CadenceSkip(t *testing.T) {
	rt := goja.New()

	c := registry.Descriptor{
		Name:           "C",
		Kind:           registry.HostModule,
		FramesInterval: 3,
		InitialShared:  value.Map(value.MapEntry{Key: "k", Value: value.Integer(0)}),
		HasShared:      true,
		InitFn:         mustCallable(t, rt, `(function(self){})`),
		UpdateFn:       mustCallable(t, rt, `(function(ctx){ ctx.shared_state.k += 1; })`),
	}

	p, err := plan.Build([]registry.Descriptor{c})
	require.NoError(t, err)

	store := snapshot.New(map[string]value.Value{"C": c.InitialShared})
	h := NewHostExecutor(rt, p, store, newGuard())

	for frame := uint64(0); frame < 10; frame++ {
		require.NoError(t, h.RunFrame(frame))
	}

	cv, _, err := store.Read("C")
	require.NoError(t, err)
	k, _ := cv.Get("k")
	assert.Equal(t, int64(4), k.AsInteger(), "frames 0, 3, 6, 9")
}

func TestHostExecutor_ScriptFaultInUpdate(t *testing.T) {
	rt := goja.New()

	f := registry.Descriptor{
		Name:           "F",
		Kind:           registry.HostModule,
		FramesInterval: 1,
		InitFn:         mustCallable(t, rt, `(function(self){})`),
		UpdateFn:       mustCallable(t, rt, `(function(ctx){ throw new Error("boom"); })`),
	}
	g := registry.Descriptor{
		Name:           "G",
		Kind:           registry.HostModule,
		FramesInterval: 1,
		InitialShared:  value.Map(value.MapEntry{Key: "c", Value: value.Integer(0)}),
		HasShared:      true,
		InitFn:         mustCallable(t, rt, `(function(self){})`),
		UpdateFn:       mustCallable(t, rt, `(function(ctx){ ctx.shared_state.c += 1; })`),
	}

	p, err := plan.Build([]registry.Descriptor{f, g})
	require.NoError(t, err)

	store := snapshot.New(map[string]value.Value{"G": g.InitialShared})

	var buf bytes.Buffer
	guard := fault.New(fault.DefaultThreshold, nil, enginelog.New(&buf, logiface.LevelInformational))
	h := NewHostExecutor(rt, p, store, guard)

	for frame := uint64(0); frame < 5; frame++ {
		require.NoError(t, h.RunFrame(frame))
	}

	gv, _, err := store.Read("G")
	require.NoError(t, err)
	c, _ := gv.Get("c")
	assert.Equal(t, int64(5), c.AsInteger())

	faultCount := bytes.Count(buf.Bytes(), []byte(`"module":"F"`))
	assert.Equal(t, 5, faultCount)
	assert.False(t, guard.Disabled("F"), "threshold is 16; 5 failures should not yet disable")
}

func TestHostExecutor_InitFailureDisablesModule(t *testing.T) {
	rt := goja.New()

	m := registry.Descriptor{
		Name:           "m",
		Kind:           registry.HostModule,
		FramesInterval: 1,
		InitFn:         mustCallable(t, rt, `(function(self){ throw new Error("init boom"); })`),
		UpdateFn:       mustCallable(t, rt, `(function(ctx){})`),
	}

	p, err := plan.Build([]registry.Descriptor{m})
	require.NoError(t, err)

	store := snapshot.New(nil)
	guard := newGuard()
	h := NewHostExecutor(rt, p, store, guard)

	require.NoError(t, h.RunFrame(0))
	assert.True(t, guard.Disabled("m"))
}

func TestHostExecutor_CyclicShareStateSkipsRepublish(t *testing.T) {
	rt := goja.New()

	cyclic := registry.Descriptor{
		Name:           "cyclic",
		Kind:           registry.HostModule,
		FramesInterval: 1,
		InitialShared:  value.Map(value.MapEntry{Key: "n", Value: value.Integer(1)}),
		HasShared:      true,
		InitFn:         mustCallable(t, rt, `(function(self){})`),
		UpdateFn:       mustCallable(t, rt, `(function(ctx){ ctx.shared_state.n = 2; ctx.shared_state.self = ctx.shared_state; })`),
	}

	p, err := plan.Build([]registry.Descriptor{cyclic})
	require.NoError(t, err)

	store := snapshot.New(map[string]value.Value{"cyclic": cyclic.InitialShared})
	h := NewHostExecutor(rt, p, store, newGuard())

	require.NoError(t, h.RunFrame(0))

	v, _, err := store.Read("cyclic")
	require.NoError(t, err)
	n, _ := v.Get("n")
	assert.Equal(t, int64(1), n.AsInteger(), "a self-referential shared_state must not overwrite the last published snapshot")
}
