// Package snapshot implements the Shared Snapshot Store: a per-module cell
// holding a host-neutral value, guarded by a per-cell mutex and a monotonic
// version counter, used to ferry module state across thread boundaries
// without ever sharing a mutable reference.
package snapshot

import (
	"fmt"
	"sync"

	"github.com/joeycumines/moduleengine/value"
)

// cell is one module's shared-state slot. Critical sections are limited to
// a clone/swap of value.Value; no script code ever runs while the mutex is
// held (spec.md §5's cardinal invariant).
type cell struct {
	mu      sync.Mutex
	current value.Value
	version uint64
}

// Store holds one cell per registered module name. The set of names is
// fixed at construction time (after the Module Registry freezes); Store
// itself performs no dynamic name registration, matching the "immutable
// after bootstrap" contract of the Execution Plan.
type Store struct {
	cells map[string]*cell
}

// New builds a Store with one cell per entry in initial, seeded with the
// given initial value (typically a module's declared initial_shared).
func New(initial map[string]value.Value) *Store {
	cells := make(map[string]*cell, len(initial))
	for name, v := range initial {
		cells[name] = &cell{current: v.Clone()}
	}
	return &Store{cells: cells}
}

// ErrUnknownCell is returned by Publish/Read/ReadMany when asked to act on
// a module name that has no cell in this Store.
type ErrUnknownCell struct{ Name string }

func (e ErrUnknownCell) Error() string {
	return fmt.Sprintf("snapshot: unknown cell %q", e.Name)
}

// Publish replaces name's cell with a deep clone of v and bumps its
// version. The caller's v is not retained; Publish clones it before
// returning, so subsequent caller-side mutation of v (or anything it was
// built from) is never observed by a reader (P1 Isolation).
func (s *Store) Publish(name string, v value.Value) (version uint64, err error) {
	c, ok := s.cells[name]
	if !ok {
		return 0, ErrUnknownCell{Name: name}
	}
	cloned := v.Clone()
	c.mu.Lock()
	c.current = cloned
	c.version++
	version = c.version
	c.mu.Unlock()
	return version, nil
}

// Read returns a deep clone of name's current value along with its
// version. The lock is held only for the duration of the clone (P4
// Monotone Versions: version values observed by successive Read calls on
// the same cell never decrease).
func (s *Store) Read(name string) (v value.Value, version uint64, err error) {
	c, ok := s.cells[name]
	if !ok {
		return value.Value{}, 0, ErrUnknownCell{Name: name}
	}
	c.mu.Lock()
	v = c.current.Clone()
	version = c.version
	c.mu.Unlock()
	return v, version, nil
}

// ReadMany reads every named cell independently and returns the results
// keyed by name. This is not atomic across names: two cells may be
// snapshotted at different instants relative to concurrent publishers.
// Cross-module consistency across a single ReadMany call is explicitly not
// guaranteed, per spec.md §4.2.
func (s *Store) ReadMany(names []string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(names))
	for _, name := range names {
		v, _, err := s.Read(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// Version returns name's current version without cloning the value. Used
// by tests and diagnostics that only need to observe monotonicity.
func (s *Store) Version(name string) (uint64, error) {
	c, ok := s.cells[name]
	if !ok {
		return 0, ErrUnknownCell{Name: name}
	}
	c.mu.Lock()
	version := c.version
	c.mu.Unlock()
	return version, nil
}

// Names returns the set of module names this Store holds cells for. The
// returned slice is a fresh copy, safe for the caller to mutate.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.cells))
	for name := range s.cells {
		out = append(out, name)
	}
	return out
}
