package registry

import (
	"errors"
	"testing"

	"github.com/joeycumines/moduleengine/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDescriptor(name string, deps ...string) Descriptor {
	return Descriptor{
		Name:           name,
		Kind:           HostModule,
		Deps:           deps,
		FramesInterval: 1,
		InitialShared:  value.Null(),
		InitialLocal:   value.Null(),
		InitFn:         func() {},
		UpdateFn:       func() {},
	}
}

func TestRegistry_RegisterAndFreeze(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(validDescriptor("a")))
	require.NoError(t, r.Register(validDescriptor("b", "a")))

	snapshot := r.Freeze()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].Name)
	assert.Equal(t, "b", snapshot[1].Name)
	assert.True(t, r.Frozen())
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(validDescriptor("a")))
	err := r.Register(validDescriptor("a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateModule))
}

func TestRegistry_MalformedDescriptor(t *testing.T) {
	cases := []struct {
		name string
		d    Descriptor
	}{
		{"empty name", Descriptor{InitFn: func() {}, UpdateFn: func() {}, FramesInterval: 1}},
		{"missing init", Descriptor{Name: "x", UpdateFn: func() {}, FramesInterval: 1}},
		{"missing update", Descriptor{Name: "x", InitFn: func() {}, FramesInterval: 1}},
		{"bad cadence", Descriptor{Name: "x", InitFn: func() {}, UpdateFn: func() {}, FramesInterval: 0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := New()
			err := r.Register(c.d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedModule))
		})
	}
}

func TestRegistry_RegisterAfterFreeze(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(validDescriptor("a")))
	r.Freeze()

	err := r.Register(validDescriptor("b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyFrozen))
}

func TestRegistry_FreezeIdempotent(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(validDescriptor("a")))
	first := r.Freeze()
	second := r.Freeze()
	assert.Equal(t, first, second)
}

func TestDescriptor_CloneIsolatesNeutralValues(t *testing.T) {
	shared := value.Map(value.MapEntry{Key: "n", Value: value.Integer(1)})
	d := Descriptor{
		Name:           "a",
		FramesInterval: 1,
		InitialShared:  shared,
		InitFn:         func() {},
		UpdateFn:       func() {},
	}
	cloned := d.Clone()
	cloned.Deps = append(cloned.Deps, "mutated")
	assert.Empty(t, d.Deps)

	cloned.InitialShared.AsMap()[0] = value.MapEntry{Key: "n", Value: value.Integer(2)}
	n, ok := d.InitialShared.Get("n")
	require.True(t, ok)
	assert.Equal(t, int64(1), n.AsInteger())
}
