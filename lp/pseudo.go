package lp

import (
	"context"

	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

// PseudoSolver is the built-in trivial relaxer: it ignores all rows and puts
// every variable at the bound minimizing its objective contribution. The
// resulting point is the node's pseudo solution and its objective a valid
// (weak) dual bound. Real LP backends replace it through the Solver
// interface; constraint enforcement makes the search correct despite the
// ignored rows.
type PseudoSolver struct {
	Tol *numerics.Tolerances
}

// Solve implements Solver.
func (s *PseudoSolver) Solve(_ context.Context, p *prob.Problem, _ []Row, objlimit float64) (Solution, error) {
	tol := s.Tol
	if tol == nil {
		tol = numerics.Default()
	}

	vals := make([]float64, p.NVars())
	var obj float64
	for _, v := range p.Vars() {
		if v.Lb() > v.Ub()+tol.FeasTol {
			return Solution{Status: StatusInfeasible}, nil
		}
		switch {
		case v.Obj() >= 0:
			if tol.IsNegInfinity(v.Lb()) {
				return Solution{Status: StatusUnbounded}, nil
			}
			vals[v.Index()] = v.Lb()
		default:
			if tol.IsInfinity(v.Ub()) {
				return Solution{Status: StatusUnbounded}, nil
			}
			vals[v.Index()] = v.Ub()
		}
		obj += v.Obj() * vals[v.Index()]
	}

	if tol.IsGE(obj, objlimit) {
		return Solution{Status: StatusObjLimit, Objective: obj}, nil
	}
	return Solution{Status: StatusOptimal, Objective: obj, Vals: vals}, nil
}
