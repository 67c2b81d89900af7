package exec

import "errors"

// ErrWorkerJoinTimeout is returned (and logged, not fatal) when a worker
// fails to observe set_exiting and return within its join deadline
// (spec.md §5, §7).
var ErrWorkerJoinTimeout = errors.New("exec: worker join deadline exceeded")
