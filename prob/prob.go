package prob

import (
	"fmt"

	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/numerics"
)

// Sense is the objective sense.
type Sense int8

const (
	Minimize Sense = +1
	Maximize Sense = -1
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Problem is the static problem data: variables, their bounds and objective
// coefficients. Constraint instances are registered with the solver's handler
// registry, not with the problem.
type Problem struct {
	name   string
	sense  Sense
	vars   []*Var
	filter *event.Filter // global filter for var additions/deletions
	grow   numerics.GrowCalc
}

// New creates an empty problem.
func New(name string, sense Sense) *Problem {
	grow := numerics.DefaultGrow()
	return &Problem{
		name:   name,
		sense:  sense,
		filter: event.NewFilter(grow),
		grow:   grow,
	}
}

// Name returns the problem name.
func (p *Problem) Name() string { return p.name }

// Sense returns the objective sense.
func (p *Problem) Sense() Sense { return p.sense }

// Filter returns the problem's global event filter, notified of variable
// additions and deletions.
func (p *Problem) Filter() *event.Filter { return p.filter }

// Vars returns the problem's variables, in creation order.
func (p *Problem) Vars() []*Var { return p.vars }

// NVars returns the number of variables.
func (p *Problem) NVars() int { return len(p.vars) }

// Var returns the variable at index i.
func (p *Problem) Var(i int) *Var { return p.vars[i] }

// AddVar creates a variable with the given global bounds and objective
// coefficient and announces it on the global filter. An integral variable's
// bounds are adjusted to the integers inside them; adjusted bounds that
// cross make the variable, and the problem, infeasible.
func (p *Problem) AddVar(tol *numerics.Tolerances, q *event.Queue, name string, lb, ub, obj float64, integral bool) (*Var, error) {
	if integral {
		if !tol.IsNegInfinity(lb) {
			lb = tol.Ceil(lb)
		}
		if !tol.IsInfinity(ub) {
			ub = tol.Floor(ub)
		}
	}
	if lb > ub {
		return nil, fmt.Errorf("prob: variable <%s> has crossed bounds [%g,%g]", name, lb, ub)
	}
	v := &Var{
		index:    len(p.vars),
		name:     name,
		obj:      obj,
		glbLb:    lb,
		glbUb:    ub,
		lb:       lb,
		ub:       ub,
		integral: integral,
		filter:   event.NewFilter(p.grow),
	}
	p.vars = append(p.vars, v)
	if err := q.Add(p.filter, event.NewVarAdded(v)); err != nil {
		return nil, err
	}
	return v, nil
}

// ResetLocalBounds restores every variable's local bounds to the global ones.
// Used when the search (re)starts at the root.
func (p *Problem) ResetLocalBounds() {
	for _, v := range p.vars {
		v.lb = v.glbLb
		v.ub = v.glbUb
	}
}

// BranchCands returns the integral variables whose value in vals (indexed by
// variable index) is fractional within feastol, in index order.
func (p *Problem) BranchCands(tol *numerics.Tolerances, vals []float64) []*Var {
	var cands []*Var
	for _, v := range p.vars {
		if !v.integral {
			continue
		}
		if !tol.IsFeasIntegral(vals[v.index]) {
			cands = append(cands, v)
		}
	}
	return cands
}

// ObjValue evaluates the objective at the given point.
func (p *Problem) ObjValue(vals []float64) float64 {
	var obj float64
	for _, v := range p.vars {
		obj += v.obj * vals[v.index]
	}
	return obj
}

// PseudoObj returns the pseudo objective value: every variable at the bound
// minimizing its objective contribution. It is a valid dual bound for
// minimization problems.
func (p *Problem) PseudoObj(tol *numerics.Tolerances) float64 {
	var obj float64
	for _, v := range p.vars {
		if v.obj >= 0 {
			if tol.IsNegInfinity(v.lb) {
				return -tol.Infinity
			}
			obj += v.obj * v.lb
		} else {
			if tol.IsInfinity(v.ub) {
				return -tol.Infinity
			}
			obj += v.obj * v.ub
		}
	}
	return obj
}
