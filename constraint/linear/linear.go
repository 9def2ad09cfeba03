// Package linear provides the constraint handler for linear constraints of
// the form lhs <= a*x <= rhs. One-sided constraints use the infinity value of
// the tolerance set for the missing side.
package linear

import (
	"fmt"

	"github.com/cipkit/cipkit/constraint"
	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

const (
	EnfoPriority  = -100
	CheckPriority = -100
	SepaPriority  = 100
)

// Props returns the handler's dispatch parameters.
func Props() constraint.Props {
	return constraint.Props{
		SepaPriority:  SepaPriority,
		EnfoPriority:  EnfoPriority,
		CheckPriority: CheckPriority,
		SepaFreq:      1,
		PropFreq:      1,
		NeedsCons:     true,
	}
}

// Data is the constraint payload: the row lhs <= sum coefs[i]*vars[i] <= rhs.
type Data struct {
	Vars  []*prob.Var
	Coefs []float64
	Lhs   float64
	Rhs   float64
}

// Row converts the constraint into a relaxation row.
func (d *Data) Row(name string) lp.Row {
	idx := make([]int, len(d.Vars))
	for i, v := range d.Vars {
		idx[i] = v.Index()
	}
	return lp.Row{Name: name, Idx: idx, Coefs: d.Coefs, Lhs: d.Lhs, Rhs: d.Rhs}
}

// activity evaluates the row at the point given by val.
func (d *Data) activity(val func(*prob.Var) float64) float64 {
	var act float64
	for i, v := range d.Vars {
		act += d.Coefs[i] * val(v)
	}
	return act
}

// activityBounds computes the minimal and maximal activity reachable within
// the current local domains, together with the number of infinite
// contributions on each side.
func (d *Data) activityBounds(tol *numerics.Tolerances) (minact, maxact float64, nmininf, nmaxinf int) {
	for i, v := range d.Vars {
		c := d.Coefs[i]
		lo, hi := v.Lb(), v.Ub()
		if c < 0 {
			lo, hi = hi, lo
		}
		if cl := c * lo; tol.IsNegInfinity(cl) {
			nmininf++
		} else {
			minact += cl
		}
		if ch := c * hi; tol.IsInfinity(ch) {
			nmaxinf++
		} else {
			maxact += ch
		}
	}
	return minact, maxact, nmininf, nmaxinf
}

// Handler implements the linear constraint handler.
type Handler struct {
	tol *numerics.Tolerances
}

// New creates the handler. The tolerances classify one-sided rows in Lock,
// which runs without an environment; nil falls back to the defaults.
func New(tol *numerics.Tolerances) *Handler {
	if tol == nil {
		tol = numerics.Default()
	}
	return &Handler{tol: tol}
}

func (h *Handler) Name() string { return "linear" }

func data(c *constraint.Cons) *Data {
	d, ok := c.Data.(*Data)
	if !ok {
		panic(fmt.Sprintf("linear: constraint <%s> carries %T", c.Name(), c.Data))
	}
	return d
}

// violated reports whether the activity act violates the constraint.
func violated(tol *numerics.Tolerances, d *Data, act float64) bool {
	if !tol.IsNegInfinity(d.Lhs) && !tol.IsFeasGE(act, d.Lhs) {
		return true
	}
	if !tol.IsInfinity(d.Rhs) && !tol.IsFeasLE(act, d.Rhs) {
		return true
	}
	return false
}

// EnforceLP resolves relaxation violations by handing the violated row to the
// cut storage, forcing a resolve with the row respected.
func (h *Handler) EnforceLP(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	res := constraint.Feasible
	for _, c := range conss {
		d := data(c)
		act := d.activity(env.LPVal)
		if !violated(tol, d, act) {
			c.IncAge(env.AgeLimit())
			continue
		}
		c.ResetAge()
		if err := env.AddCut(d.Row(c.Name())); err != nil {
			return constraint.Feasible, err
		}
		res = constraint.Separated
	}
	return res, nil
}

// EnforcePseudo enforces the pseudo solution: a violated constraint with all
// variables fixed has a determined activity and cuts the node off; with an
// unfixed integer variable the violation is resolved by branching on it; an
// unfixed continuous variable demands a relaxation solve.
func (h *Handler) EnforcePseudo(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	for _, c := range conss {
		d := data(c)
		if !violated(tol, d, d.activity(env.LPVal)) {
			continue
		}
		c.ResetAge()
		var branchvar *prob.Var
		for _, v := range d.Vars {
			if v.Fixed(tol) {
				continue
			}
			if !v.Integral() {
				return constraint.SolveLP, nil
			}
			if branchvar == nil {
				branchvar = v
			}
		}
		if branchvar == nil {
			return constraint.Cutoff, nil
		}
		if err := env.BranchVar(branchvar, (branchvar.Lb()+branchvar.Ub())/2); err != nil {
			return constraint.Feasible, err
		}
		return constraint.Branched, nil
	}
	return constraint.Feasible, nil
}

// Separate adds the rows violated by the relaxation solution as cuts.
func (h *Handler) Separate(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	res := constraint.DidNotFind
	for _, c := range conss {
		d := data(c)
		if !violated(tol, d, d.activity(env.LPVal)) {
			continue
		}
		if err := env.AddCut(d.Row(c.Name())); err != nil {
			return res, err
		}
		c.ResetAge()
		res = constraint.Separated
	}
	return res, nil
}

// Propagate tightens variable bounds using residual activity bounds. A
// constraint whose minimal activity already exceeds its right-hand side (or
// maximal activity undercuts the left-hand side) cuts the node off.
func (h *Handler) Propagate(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	res := constraint.DidNotFind
	for _, c := range conss {
		d := data(c)
		minact, maxact, nmininf, nmaxinf := d.activityBounds(tol)

		if nmininf == 0 && !tol.IsInfinity(d.Rhs) && !tol.IsFeasLE(minact, d.Rhs) {
			return constraint.Cutoff, nil
		}
		if nmaxinf == 0 && !tol.IsNegInfinity(d.Lhs) && !tol.IsFeasGE(maxact, d.Lhs) {
			return constraint.Cutoff, nil
		}

		for i, v := range d.Vars {
			coef := d.Coefs[i]
			if tol.IsZero(coef) {
				continue
			}
			lo, hi := v.Lb(), v.Ub()
			minc, maxc := coef*lo, coef*hi
			if coef < 0 {
				minc, maxc = maxc, minc
			}

			// residual activities without v's contribution
			if nmininf == 0 && !tol.IsInfinity(d.Rhs) {
				resmin := minact - minc
				// coef*x <= rhs - resmin
				bound := (d.Rhs - resmin) / coef
				tightened, infeasible, err := tightenUpper(env, v, coef, bound, tol)
				if err != nil {
					return res, err
				}
				if infeasible {
					return constraint.Cutoff, nil
				}
				if tightened {
					res = constraint.ReducedDom
					minact, maxact, nmininf, nmaxinf = d.activityBounds(tol)
				}
			}
			if nmaxinf == 0 && !tol.IsNegInfinity(d.Lhs) {
				resmax := maxact - maxc
				// coef*x >= lhs - resmax
				bound := (d.Lhs - resmax) / coef
				tightened, infeasible, err := tightenLower(env, v, coef, bound, tol)
				if err != nil {
					return res, err
				}
				if infeasible {
					return constraint.Cutoff, nil
				}
				if tightened {
					res = constraint.ReducedDom
					minact, maxact, nmininf, nmaxinf = d.activityBounds(tol)
				}
			}
		}
	}
	return res, nil
}

// tightenUpper applies coef*x <= bound*coef, i.e. x <= bound for positive and
// x >= bound for negative coefficients. Integer variables get the bound
// rounded.
func tightenUpper(env constraint.Env, v *prob.Var, coef, bound float64, tol *numerics.Tolerances) (bool, bool, error) {
	if coef > 0 {
		if v.Integral() {
			bound = tol.Floor(bound)
		}
		if tol.IsGE(bound, v.Ub()) {
			return false, false, nil
		}
		return env.TightenUb(v, bound)
	}
	if v.Integral() {
		bound = tol.Ceil(bound)
	}
	if tol.IsLE(bound, v.Lb()) {
		return false, false, nil
	}
	return env.TightenLb(v, bound)
}

// tightenLower applies coef*x >= bound*coef, symmetric to tightenUpper.
func tightenLower(env constraint.Env, v *prob.Var, coef, bound float64, tol *numerics.Tolerances) (bool, bool, error) {
	if coef > 0 {
		if v.Integral() {
			bound = tol.Ceil(bound)
		}
		if tol.IsLE(bound, v.Lb()) {
			return false, false, nil
		}
		return env.TightenLb(v, bound)
	}
	if v.Integral() {
		bound = tol.Floor(bound)
	}
	if tol.IsGE(bound, v.Ub()) {
		return false, false, nil
	}
	return env.TightenUb(v, bound)
}

// Presolve runs a root propagation pass: with the local domains still at
// their global values, any bound tightened here is a permanent reduction.
func (h *Handler) Presolve(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	return h.Propagate(env, conss)
}

// Check accepts vals iff every constraint's activity is within its sides.
func (h *Handler) Check(env constraint.Env, vals []float64, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	for _, c := range conss {
		d := data(c)
		act := d.activity(func(v *prob.Var) float64 { return vals[v.Index()] })
		if violated(tol, d, act) {
			return constraint.Infeasible, nil
		}
	}
	return constraint.Feasible, nil
}

// Lock installs rounding locks: with a finite left-hand side, rounding a
// positive-coefficient variable down may violate the constraint; with a
// finite right-hand side, rounding it up may. Negative coefficients swap the
// directions.
func (h *Handler) Lock(c *constraint.Cons, nlockspos, nlocksneg int) error {
	d := data(c)
	hasLhs := !h.tol.IsNegInfinity(d.Lhs)
	hasRhs := !h.tol.IsInfinity(d.Rhs)
	for i, v := range d.Vars {
		down, up := 0, 0
		if d.Coefs[i] > 0 {
			if hasLhs {
				down += nlockspos
				up += nlocksneg
			}
			if hasRhs {
				up += nlockspos
				down += nlocksneg
			}
		} else {
			if hasLhs {
				up += nlockspos
				down += nlocksneg
			}
			if hasRhs {
				down += nlockspos
				up += nlocksneg
			}
		}
		v.AddLocks(down, up)
	}
	return nil
}
