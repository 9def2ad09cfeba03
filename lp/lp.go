// Package lp defines the boundary between the branch-and-bound core and the
// relaxation solver. The core treats the solver as a black box returning
// primal/dual values and a status, and considers its answer authoritative for
// bounding.
package lp

import (
	"context"

	"github.com/cipkit/cipkit/prob"
)

// Status is the outcome of a relaxation solve.
type Status uint8

const (
	// StatusNotSolved means no relaxation was attempted for the node.
	StatusNotSolved Status = iota
	// StatusOptimal means an optimal relaxation solution is available.
	StatusOptimal
	// StatusInfeasible means the relaxation (and the node) is infeasible.
	StatusInfeasible
	// StatusUnbounded means the relaxation is unbounded.
	StatusUnbounded
	// StatusObjLimit means the relaxation's objective provably exceeds the
	// given objective limit; the node can be cut off.
	StatusObjLimit
	// StatusError signals numerical trouble or solver failure. The driver
	// treats it as a soft failure and falls back to pseudo-solution
	// enforcement for the node.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "notsolved"
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusObjLimit:
		return "objlimit"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Solution contains the result of solving a relaxation.
type Solution struct {
	// Status indicates the outcome of the solve.
	Status Status

	// Objective is the relaxation's objective value; a valid lower bound on
	// the node's subtree for minimization problems.
	Objective float64

	// Vals contains the primal value of each variable, indexed by variable
	// index.
	Vals []float64

	// Duals contains the dual values of the solver's rows, if available.
	Duals []float64
}

// IsOptimal reports whether an optimal relaxation solution is available.
func (s *Solution) IsOptimal() bool { return s.Status == StatusOptimal }

// HasSolution reports whether Vals holds a usable point.
func (s *Solution) HasSolution() bool {
	return s.Status == StatusOptimal || s.Status == StatusUnbounded
}

// Row is a sparse linear row: lhs <= sum(coefs[i] * var[idx[i]]) <= rhs.
// Rows serve both as constraint descriptions for the relaxation and as
// cutting planes found during separation.
type Row struct {
	Name  string
	Idx   []int
	Coefs []float64
	Lhs   float64
	Rhs   float64
}

// Activity evaluates the row at the given point.
func (r *Row) Activity(vals []float64) float64 {
	var act float64
	for k, i := range r.Idx {
		act += r.Coefs[k] * vals[i]
	}
	return act
}

// Solver is the external relaxation solver. Solve relaxes the problem at the
// current local domains, honoring the additional cut rows, and gives up as
// soon as the objective provably exceeds objlimit.
type Solver interface {
	Solve(ctx context.Context, p *prob.Problem, cuts []Row, objlimit float64) (Solution, error)
}
