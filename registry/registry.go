package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry implements the bootstrap phase of the two-phase registration
// protocol (spec.md §4.3): Register calls accumulate descriptors; Freeze
// closes the phase and returns a snapshot in registration order, which the
// Dependency Planner consumes to build the frozen Execution Plan.
//
// A Registry is only safe to Register on before Freeze is called. Scripts
// register modules from a single bootstrap goroutine in practice, but the
// mutex makes concurrent bootstrap registration safe too.
type Registry struct {
	mu       sync.Mutex
	byName   map[string]int // name -> index into order
	order    []Descriptor
	frozen   bool
}

// New returns an empty, unfrozen Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register validates and stores d. Returns ErrDuplicateModule if d.Name
// was already registered, ErrMalformedModule if a required field is
// missing, and ErrAlreadyFrozen if called after Freeze.
func (r *Registry) Register(d Descriptor) error {
	if err := validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrAlreadyFrozen
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateModule, d.Name)
	}

	r.byName[d.Name] = len(r.order)
	r.order = append(r.order, d.Clone())
	return nil
}

func validate(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedModule)
	}
	if d.InitFn == nil {
		return fmt.Errorf("%w: %q missing init", ErrMalformedModule, d.Name)
	}
	if d.UpdateFn == nil {
		return fmt.Errorf("%w: %q missing update", ErrMalformedModule, d.Name)
	}
	if d.FramesInterval <= 0 {
		return fmt.Errorf("%w: %q has non-positive frames_interval", ErrMalformedModule, d.Name)
	}
	for _, dep := range d.Deps {
		if dep == "" {
			return fmt.Errorf("%w: %q has an empty dependency name", ErrMalformedModule, d.Name)
		}
	}
	return nil
}

// Freeze closes registration and returns every registered descriptor in
// registration order. Calling Freeze twice returns the same snapshot; it
// is idempotent. After Freeze, Register always fails with ErrAlreadyFrozen.
func (r *Registry) Freeze() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// Names returns every registered module name, sorted, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}
