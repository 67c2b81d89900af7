package plan

import (
	"errors"
	"testing"

	"github.com/joeycumines/moduleengine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desc(name string, kind registry.Kind, deps ...string) registry.Descriptor {
	return registry.Descriptor{
		Name:           name,
		Kind:           kind,
		Deps:           deps,
		FramesInterval: 1,
		InitFn:         func() {},
		UpdateFn:       func() {},
	}
}

func TestBuild_SimpleChain(t *testing.T) {
	p, err := Build([]registry.Descriptor{
		desc("a", registry.HostModule),
		desc("b", registry.HostModule, "a"),
		desc("c", registry.HostModule, "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, p.HostOrder)
	assert.Empty(t, p.WorkerNames)
}

func TestBuild_TiesBrokenByRegistrationOrder(t *testing.T) {
	// a, b and c have no deps; registration order is a, b, c, d - ready
	// set at start is {a, b, c}. All of a, b, c are independently ready; d
	// depends on all three. Expect a, b, c in registration order, then d.
	p, err := Build([]registry.Descriptor{
		desc("a", registry.HostModule),
		desc("b", registry.HostModule),
		desc("c", registry.HostModule),
		desc("d", registry.HostModule, "a", "b", "c"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.HostOrder)
}

func TestBuild_WorkerModulesExcludedFromHostOrder(t *testing.T) {
	p, err := Build([]registry.Descriptor{
		desc("h", registry.HostModule, "w"),
		desc("w", registry.WorkerModule),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"h"}, p.HostOrder)
	assert.Equal(t, []string{"w"}, p.WorkerNames)
}

func TestBuild_UnknownDep(t *testing.T) {
	_, err := Build([]registry.Descriptor{
		desc("a", registry.HostModule, "ghost"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDep))
}

func TestBuild_CycleDetected(t *testing.T) {
	_, err := Build([]registry.Descriptor{
		desc("x", registry.HostModule, "y"),
		desc("y", registry.HostModule, "x"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDependencyCycle))
	assert.Contains(t, err.Error(), "x")
	assert.Contains(t, err.Error(), "y")
}

func TestBuild_CycleWithUninvolvedModule(t *testing.T) {
	// z has no deps and is not part of the cycle; only x, y should be
	// named.
	_, err := Build([]registry.Descriptor{
		desc("x", registry.HostModule, "y"),
		desc("y", registry.HostModule, "x"),
		desc("z", registry.HostModule),
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "z")
}

func TestBuild_SelfCycle(t *testing.T) {
	_, err := Build([]registry.Descriptor{
		desc("a", registry.HostModule, "a"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDependencyCycle))
}
