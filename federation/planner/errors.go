package planner

// UnsatisfiableError reports that no execution plan can satisfy the
// operation: a selected field has no subgraph that can resolve it, or a
// @requires dependency can't be routed back to a step that already has
// the data. Callers distinguish this from an internal planning failure so
// it can be surfaced to the client as a 4xx-class problem rather than a
// 500.
type UnsatisfiableError struct {
	Reason string
}

func (e *UnsatisfiableError) Error() string {
	return "unsatisfiable plan: " + e.Reason
}
