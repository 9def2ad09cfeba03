package solver

import (
	"math"

	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

// Sol is a feasible solution of the problem.
type Sol struct {
	Obj  float64
	Vals []float64 // indexed by variable index
}

// primal tracks the incumbent solution and the objective cutoff derived from
// it. With an integral objective the cutoff is strengthened below the next
// reachable objective value.
type primal struct {
	tol         *numerics.Tolerances
	objIntegral bool

	upperbound  float64
	cutoffbound float64
	best        *Sol
}

func newPrimal(tol *numerics.Tolerances, p *prob.Problem) *primal {
	objIntegral := true
	for _, v := range p.Vars() {
		if v.Obj() == 0 {
			continue
		}
		if !v.Integral() || math.Trunc(v.Obj()) != v.Obj() {
			objIntegral = false
			break
		}
	}
	return &primal{
		tol:         tol,
		objIntegral: objIntegral,
		upperbound:  tol.Infinity,
		cutoffbound: tol.Infinity,
	}
}

// Improving reports whether a solution with objective obj would improve the
// incumbent.
func (pr *primal) Improving(obj float64) bool {
	return pr.tol.IsLT(obj, pr.upperbound)
}

// AddSol installs vals as the new incumbent if it improves the upper bound,
// announces it on the problem filter and returns whether it was accepted.
// The caller prunes the open queue against the new Cutoffbound.
func (pr *primal) AddSol(q *event.Queue, filter *event.Filter, obj float64, vals []float64) (bool, error) {
	if !pr.Improving(obj) {
		return false, nil
	}
	sol := &Sol{Obj: obj, Vals: append([]float64(nil), vals...)}
	pr.best = sol
	pr.upperbound = obj
	pr.cutoffbound = obj
	if pr.objIntegral {
		// nodes with a dual bound above obj-1 cannot reach a better
		// integral objective value
		pr.cutoffbound = obj - 1 + pr.tol.FeasTol
	}
	if err := q.Add(filter, event.NewSolFound(sol)); err != nil {
		return true, err
	}
	return true, nil
}

// Best returns the incumbent, nil if none was found yet.
func (pr *primal) Best() *Sol { return pr.best }

// Upperbound returns the incumbent objective, infinity without an incumbent.
func (pr *primal) Upperbound() float64 { return pr.upperbound }

// Cutoffbound returns the bound nodes are pruned against.
func (pr *primal) Cutoffbound() float64 { return pr.cutoffbound }

// Gap returns the relative primal-dual gap for the given dual bound;
// infinity while no incumbent exists or the bounds have opposite signs.
func (pr *primal) Gap(dual float64) float64 {
	if pr.best == nil || pr.tol.IsInfinity(pr.upperbound) || pr.tol.IsNegInfinity(dual) {
		return pr.tol.Infinity
	}
	if pr.tol.IsGE(dual, pr.upperbound) {
		return 0
	}
	if pr.upperbound*dual < 0 {
		return pr.tol.Infinity
	}
	return (pr.upperbound - dual) / math.Max(math.Max(math.Abs(pr.upperbound), math.Abs(dual)), 1e-10)
}
