// Package prob holds the problem data the search operates on: variables with
// global and local bounds, the objective, and the bound-change records that
// search nodes apply and undo when the focus moves through the tree.
package prob

import (
	"fmt"

	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/numerics"
)

// Var is a problem variable. Global bounds delimit the problem itself; local
// bounds are the ones valid at the currently focused search node and move as
// bound changes are applied and undone.
type Var struct {
	index    int
	name     string
	obj      float64
	glbLb    float64
	glbUb    float64
	lb       float64 // local lower bound
	ub       float64 // local upper bound
	integral bool

	nlocksdown int
	nlocksup   int

	filter *event.Filter
}

func (v *Var) Index() int   { return v.index }
func (v *Var) Name() string { return v.name }

// Obj returns the variable's objective coefficient.
func (v *Var) Obj() float64 { return v.obj }

// Lb returns the local lower bound.
func (v *Var) Lb() float64 { return v.lb }

// Ub returns the local upper bound.
func (v *Var) Ub() float64 { return v.ub }

// GlbLb returns the global lower bound.
func (v *Var) GlbLb() float64 { return v.glbLb }

// GlbUb returns the global upper bound.
func (v *Var) GlbUb() float64 { return v.glbUb }

// Integral reports whether the variable must take an integer value.
func (v *Var) Integral() bool { return v.integral }

// Filter returns the variable's event filter. Constraints depending on the
// variable's bounds catch its bound-change events here on activation and drop
// them on deactivation.
func (v *Var) Filter() *event.Filter { return v.filter }

// Fixed reports whether the local bounds coincide within epsilon.
func (v *Var) Fixed(tol *numerics.Tolerances) bool { return tol.IsEQ(v.lb, v.ub) }

// AddLocks adjusts the rounding lock counters. Negative totals are a
// contract violation.
func (v *Var) AddLocks(down, up int) {
	v.nlocksdown += down
	v.nlocksup += up
	if v.nlocksdown < 0 || v.nlocksup < 0 {
		panic(fmt.Sprintf("prob: negative lock count on variable <%s> (%d down, %d up)",
			v.name, v.nlocksdown, v.nlocksup))
	}
}

// LocksDown returns the number of constraints blocking the variable from
// rounding down.
func (v *Var) LocksDown() int { return v.nlocksdown }

// LocksUp returns the number of constraints blocking the variable from
// rounding up.
func (v *Var) LocksUp() int { return v.nlocksup }

// ChgLbLocal changes the local lower bound to newbound and returns the
// recorded change. The bound-change event goes through q to the variable's
// filter. Bounds crossing the local upper bound by more than feastol are a
// contract violation; use propagation results to detect infeasibility before
// applying.
func (v *Var) ChgLbLocal(tol *numerics.Tolerances, q *event.Queue, newbound float64) (BoundChange, error) {
	if newbound > v.ub+tol.FeasTol {
		panic(fmt.Sprintf("prob: new lower bound %g of <%s> exceeds upper bound %g", newbound, v.name, v.ub))
	}
	bc := BoundChange{Var: v, Side: LowerBound, Old: v.lb, New: newbound}
	v.lb = newbound
	if err := q.Add(v.filter, event.NewLbChanged(v, bc.Old, bc.New)); err != nil {
		return bc, err
	}
	return bc, nil
}

// ChgUbLocal changes the local upper bound to newbound and returns the
// recorded change.
func (v *Var) ChgUbLocal(tol *numerics.Tolerances, q *event.Queue, newbound float64) (BoundChange, error) {
	if newbound < v.lb-tol.FeasTol {
		panic(fmt.Sprintf("prob: new upper bound %g of <%s> below lower bound %g", newbound, v.name, v.lb))
	}
	bc := BoundChange{Var: v, Side: UpperBound, Old: v.ub, New: newbound}
	v.ub = newbound
	if err := q.Add(v.filter, event.NewUbChanged(v, bc.Old, bc.New)); err != nil {
		return bc, err
	}
	return bc, nil
}

// ChgObj changes the objective coefficient, notifying subscribers.
func (v *Var) ChgObj(q *event.Queue, newobj float64) error {
	oldobj := v.obj
	v.obj = newobj
	return q.Add(v.filter, event.NewObjChanged(v, oldobj, newobj))
}

// BoundSide distinguishes the two bounds of a variable.
type BoundSide uint8

const (
	LowerBound BoundSide = iota
	UpperBound
)

func (s BoundSide) String() string {
	if s == LowerBound {
		return "lb"
	}
	return "ub"
}

// BoundChange records a single local bound modification. Search nodes keep the
// changes introduced by their branching so the domain can be restored when the
// node becomes active and rolled back when the focus leaves its subtree.
type BoundChange struct {
	Var  *Var
	Side BoundSide
	Old  float64
	New  float64
}

// Apply re-applies the change to the variable's local domain.
func (bc BoundChange) Apply(q *event.Queue) error {
	if bc.Side == LowerBound {
		bc.Var.lb = bc.New
		return q.Add(bc.Var.filter, event.NewLbChanged(bc.Var, bc.Old, bc.New))
	}
	bc.Var.ub = bc.New
	return q.Add(bc.Var.filter, event.NewUbChanged(bc.Var, bc.Old, bc.New))
}

// Undo rolls the change back.
func (bc BoundChange) Undo(q *event.Queue) error {
	if bc.Side == LowerBound {
		bc.Var.lb = bc.Old
		return q.Add(bc.Var.filter, event.NewLbChanged(bc.Var, bc.New, bc.Old))
	}
	bc.Var.ub = bc.Old
	return q.Add(bc.Var.filter, event.NewUbChanged(bc.Var, bc.New, bc.Old))
}
