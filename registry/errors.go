package registry

import "errors"

// Bootstrap errors. These are fatal: the engine refuses to start if
// registration or finalization produces any of these (spec.md §7).
var (
	// ErrDuplicateModule is returned when register_module/
	// register_threaded_module is called twice with the same name.
	ErrDuplicateModule = errors.New("registry: duplicate module name")

	// ErrMalformedModule is returned when a descriptor is missing a
	// required field, or uses the rejected legacy kind/state schema.
	ErrMalformedModule = errors.New("registry: malformed module descriptor")

	// ErrAlreadyFrozen is returned when Register is called after Freeze.
	ErrAlreadyFrozen = errors.New("registry: registry is already frozen")
)
