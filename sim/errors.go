package sim

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports a construction-time problem with the parameter
// bundle: a missing or invalid value, an unknown key, a malformed lookup
// series. A run never starts once one is raised.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// InvariantViolation reports a run-time violation of a model invariant. It
// aborts the run immediately; the simulation is deterministic, so a retry
// would reproduce the identical failure.
type InvariantViolation struct {
	Step   int
	Time   float64
	Check  string
	Values map[string]float64
}

func (e *InvariantViolation) Error() string {
	keys := make([]string, 0, len(e.Values))
	for k := range e.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, e.Values[k]))
	}
	return fmt.Sprintf("invariant %s violated at step %d (t=%.2f): %s",
		e.Check, e.Step, e.Time, strings.Join(parts, " "))
}
