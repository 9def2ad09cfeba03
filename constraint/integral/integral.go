// Package integral provides the integrality constraint handler. It carries no
// constraint instances of its own: the integrality restriction lives on the
// variables, and the handler enforces it on every relaxation solution by
// branching on a fractional variable.
package integral

import (
	"math"

	"github.com/cipkit/cipkit/constraint"
	"github.com/cipkit/cipkit/prob"
)

// Dispatch priorities. Integrality enforcement runs last so that real
// constraint handlers resolve their violations first, but the feasibility
// check runs first since it is the cheapest test.
const (
	EnfoPriority  = 0
	CheckPriority = 0
)

// Props returns the handler's dispatch parameters.
func Props() constraint.Props {
	return constraint.Props{
		EnfoPriority:  EnfoPriority,
		CheckPriority: CheckPriority,
		SepaFreq:      -1,
		PropFreq:      -1,
		NeedsCons:     false,
	}
}

// Handler enforces integrality of the integer variables.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "integral" }

// EnforceLP branches on the most fractional integer variable of the current
// relaxation solution, or accepts it if all integer variables are integral.
func (h *Handler) EnforceLP(env constraint.Env, _ []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()

	var (
		branchvar *prob.Var
		branchval float64
		bestScore = -1.0
	)
	for _, v := range env.Prob().Vars() {
		if !v.Integral() {
			continue
		}
		val := env.LPVal(v)
		frac := tol.Frac(val)
		if tol.IsFeasIntegral(val) {
			continue
		}
		// distance to 0.5: most fractional first
		score := 0.5 - math.Abs(frac-0.5)
		if score > bestScore {
			bestScore = score
			branchvar = v
			branchval = val
		}
	}
	if branchvar == nil {
		return constraint.Feasible, nil
	}
	if err := env.BranchVar(branchvar, branchval); err != nil {
		return constraint.Feasible, err
	}
	return constraint.Branched, nil
}

// EnforcePseudo accepts or rejects the pseudo solution. Bounds of integer
// variables are kept integral by the branching scheme, so a pseudo solution
// with a fractional integer variable means a fractional bound slipped in;
// the driver must solve a relaxation to resolve it.
func (h *Handler) EnforcePseudo(env constraint.Env, _ []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	for _, v := range env.Prob().Vars() {
		if v.Integral() && !tol.IsFeasIntegral(env.LPVal(v)) {
			return constraint.SolveLP, nil
		}
	}
	return constraint.Feasible, nil
}

// Check accepts vals iff every integer variable takes an integral value.
func (h *Handler) Check(env constraint.Env, vals []float64, _ []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	for _, v := range env.Prob().Vars() {
		if v.Integral() && !tol.IsFeasIntegral(vals[v.Index()]) {
			return constraint.Infeasible, nil
		}
	}
	return constraint.Feasible, nil
}

// Lock is a no-op: integrality has no rounding direction.
func (h *Handler) Lock(*constraint.Cons, int, int) error { return nil }
