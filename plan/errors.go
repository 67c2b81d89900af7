package plan

import "errors"

var (
	// ErrUnknownDep is returned when a module's deps entry does not
	// resolve to any registered module.
	ErrUnknownDep = errors.New("plan: dependency references unregistered module")

	// ErrDependencyCycle is returned when the dependency graph contains a
	// cycle. The error text names every module left in the cycle set.
	ErrDependencyCycle = errors.New("plan: dependency cycle")
)
