// Package plan implements the Dependency Planner: it resolves every
// module's declared dependencies, topologically sorts the full module
// graph (Kahn's algorithm, ties broken by registration order), and
// produces the frozen Execution Plan the Host Executor and Worker
// Executor consult for the lifetime of the engine run.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joeycumines/moduleengine/registry"
)

// Plan is the frozen product of the Dependency Planner (spec.md §3).
type Plan struct {
	// HostOrder is the topological order restricted to host modules.
	HostOrder []string
	// WorkerNames is the set of worker-module names, in registration
	// order. Workers do not appear in HostOrder; they do not preempt the
	// host loop.
	WorkerNames []string
	// Descriptors indexes every module by name for O(1) lookup by the
	// executors.
	Descriptors map[string]registry.Descriptor
}

// Build resolves deps and computes the Plan from descriptors, which must
// be in registration order (as returned by registry.Registry.Freeze).
//
// Returns ErrUnknownDep if any dependency name does not resolve to a
// registered module, or ErrDependencyCycle if the dependency graph is not
// a DAG.
func Build(descriptors []registry.Descriptor) (*Plan, error) {
	byName := make(map[string]registry.Descriptor, len(descriptors))
	index := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		byName[d.Name] = d
		index[d.Name] = i
	}

	for _, d := range descriptors {
		for _, dep := range d.Deps {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("%w: %q depends on unregistered module %q", ErrUnknownDep, d.Name, dep)
			}
		}
	}

	order, err := topoSort(descriptors, index)
	if err != nil {
		return nil, err
	}

	hostOrder := make([]string, 0, len(order))
	workerNames := make([]string, 0)
	for _, name := range order {
		if byName[name].Kind == registry.WorkerModule {
			continue
		}
		hostOrder = append(hostOrder, name)
	}
	for _, d := range descriptors {
		if d.Kind == registry.WorkerModule {
			workerNames = append(workerNames, d.Name)
		}
	}

	return &Plan{
		HostOrder:   hostOrder,
		WorkerNames: workerNames,
		Descriptors: byName,
	}, nil
}

// topoSort runs Kahn's algorithm over the full dependency graph (host and
// worker modules together, since a host module may depend on a worker
// module's published state and vice versa at the graph level even though
// only host modules are ordered for dispatch). Ties among simultaneously
// ready nodes are broken by registration order for a stable, reproducible
// plan across runs with identical registration sequences.
func topoSort(descriptors []registry.Descriptor, index map[string]int) ([]string, error) {
	inDegree := make(map[string]int, len(descriptors))
	dependents := make(map[string][]string, len(descriptors))

	for _, d := range descriptors {
		if _, ok := inDegree[d.Name]; !ok {
			inDegree[d.Name] = 0
		}
		for _, dep := range d.Deps {
			inDegree[d.Name]++
			dependents[dep] = append(dependents[dep], d.Name)
		}
	}

	ready := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if inDegree[d.Name] == 0 {
			ready = append(ready, d.Name)
		}
	}
	sortByRegistrationOrder(ready, index)

	out := make([]string, 0, len(descriptors))
	for len(ready) > 0 {
		sortByRegistrationOrder(ready, index)
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)

		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(out) != len(descriptors) {
		return nil, cycleError(descriptors, inDegree)
	}
	return out, nil
}

func sortByRegistrationOrder(names []string, index map[string]int) {
	sort.Slice(names, func(i, j int) bool { return index[names[i]] < index[names[j]] })
}

// cycleError builds ErrDependencyCycle naming every module still left with
// a nonzero in-degree once Kahn's algorithm stalls — that set is exactly
// the union of all modules participating in at least one cycle (plus any
// module only reachable through a cycle), satisfying P5's requirement to
// name every module in at least one offending cycle.
func cycleError(descriptors []registry.Descriptor, inDegree map[string]int) error {
	var stuck []string
	for _, d := range descriptors {
		if inDegree[d.Name] > 0 {
			stuck = append(stuck, d.Name)
		}
	}
	sort.Strings(stuck)
	return fmt.Errorf("%w: {%s}", ErrDependencyCycle, strings.Join(stuck, ", "))
}
