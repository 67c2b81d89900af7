package value

import "errors"

// Standard errors returned by the Value Bridge. When a module's
// shared_state fails to convert after an update, the executor skips that
// tick's publish and the cell keeps its last value; the error is not passed
// to the Fault Guard and is not logged. When a descriptor's shared_state or
// local_state fails to convert at registration, the error is reported as
// registry.ErrMalformedModule and fails bootstrap.
var (
	// ErrUnsupportedKind is returned when to_neutral encounters a script
	// value with no host-neutral representation (callable, userdata,
	// thread, symbol, NaN/Inf used as a map key, etc).
	ErrUnsupportedKind = errors.New("value: unsupported script value kind")

	// ErrCyclic is returned when to_neutral detects a cycle in the input
	// (a table reachable from itself).
	ErrCyclic = errors.New("value: cyclic value")

	// ErrDepthExceeded is returned when to_neutral recursion exceeds the
	// configured maximum depth.
	ErrDepthExceeded = errors.New("value: maximum depth exceeded")
)
