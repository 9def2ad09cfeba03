// Package constraint defines the generic protocol every constraint handler
// implements and the dispatch machinery calling the handlers in priority
// order during separation, enforcement and solution checking.
//
// Expected domain outcomes (an infeasible node, a cutoff) are first-class
// Result values consumed by the search driver to prune or branch; they are
// never errors. A handler returning a non-nil error signals an internal
// failure, which is fatal and aborts the search.
package constraint

import "fmt"

// Result is a constraint handler's verdict.
type Result uint8

const (
	// DidNotRun means the handler skipped the call (frequency, no
	// constraints).
	DidNotRun Result = iota
	// DidNotFind means the handler ran and found nothing to report.
	DidNotFind
	// Feasible means all of the handler's constraints accept the solution.
	Feasible
	// Infeasible means a constraint is violated and the handler could not
	// resolve the violation itself.
	Infeasible
	// Cutoff means the handler proved the node infeasible; the node can be
	// pruned without further work.
	Cutoff
	// Separated means the handler added at least one cutting plane.
	Separated
	// ReducedDom means the handler tightened at least one variable bound.
	ReducedDom
	// Branched means the handler resolved a violation by branching.
	Branched
	// ConsAdded means the handler added constraints to resolve a violation.
	ConsAdded
	// SolveLP asks the driver to solve a real relaxation before deciding
	// (pseudo enforcement only).
	SolveLP
)

func (r Result) String() string {
	switch r {
	case DidNotRun:
		return "didnotrun"
	case DidNotFind:
		return "didnotfind"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Cutoff:
		return "cutoff"
	case Separated:
		return "separated"
	case ReducedDom:
		return "reduceddom"
	case Branched:
		return "branched"
	case ConsAdded:
		return "consadded"
	case SolveLP:
		return "solvelp"
	}
	return fmt.Sprintf("result(%d)", uint8(r))
}

// decisive reports whether the result ends an enforcement round.
func (r Result) decisive() bool {
	switch r {
	case Cutoff, Branched, ReducedDom, Separated, Infeasible, ConsAdded, SolveLP:
		return true
	}
	return false
}
