package constraint

import (
	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

// Env is the search driver's surface offered to constraint handler callbacks.
// Handlers use it to inspect the current relaxation and to resolve violations
// by tightening domains, adding cuts or branching.
type Env interface {
	// Tol returns the numeric tolerances of the running search.
	Tol() *numerics.Tolerances

	// Prob returns the problem being solved.
	Prob() *prob.Problem

	// Depth returns the depth of the node in focus.
	Depth() int

	// HasLP reports whether a relaxation solution is available at the focus
	// node.
	HasLP() bool

	// LPVal returns the relaxation value of v; the variable's best bound if
	// no relaxation was solved (the pseudo solution).
	LPVal(v *prob.Var) float64

	// Cutoffbound returns the current objective cutoff: nodes with a lower
	// bound at or above it cannot improve the incumbent.
	Cutoffbound() float64

	// AgeLimit returns the age at which an unhelpful constraint is disabled
	// as obsolete; handlers pass it to Cons.IncAge.
	AgeLimit() float64

	// TightenLb raises v's local lower bound to newbound. It reports whether
	// the bound actually moved and whether the tightening proves the node
	// infeasible (crossed bounds); in the latter case the bound is left
	// untouched.
	TightenLb(v *prob.Var, newbound float64) (tightened, infeasible bool, err error)

	// TightenUb lowers v's local upper bound to newbound, symmetric to
	// TightenLb.
	TightenUb(v *prob.Var, newbound float64) (tightened, infeasible bool, err error)

	// AddCut hands a violated row to the separation storage.
	AddCut(row lp.Row) error

	// BranchVar splits the focus node on v around the fractional point,
	// creating the down and up children.
	BranchVar(v *prob.Var, point float64) error
}

// Handler is the mandatory part of a constraint handler: LP enforcement, the
// pure feasibility check and the rounding-lock bookkeeping. Optional
// capabilities are declared by additionally implementing Separator,
// PseudoEnforcer, Propagator, Presolver, Activator or Deactivator.
type Handler interface {
	Name() string

	// EnforceLP resolves violations of the handler's constraints by the
	// current relaxation solution.
	EnforceLP(env Env, conss []*Cons) (Result, error)

	// Check decides whether the candidate point vals satisfies all given
	// constraints. Check is a pure predicate: it must not mutate domains.
	Check(env Env, vals []float64, conss []*Cons) (Result, error)

	// Lock adjusts rounding locks of the variables of cons. nlockspos and
	// nlocksneg are added for the constraint itself and its negation.
	Lock(cons *Cons, nlockspos, nlocksneg int) error
}

// Separator generates cutting planes violated by the current relaxation
// solution. Handlers without this capability have no opinion during
// separation.
type Separator interface {
	Separate(env Env, conss []*Cons) (Result, error)
}

// PseudoEnforcer enforces the pseudo solution when no relaxation was solved.
// Handlers without this capability accept the pseudo solution.
type PseudoEnforcer interface {
	EnforcePseudo(env Env, conss []*Cons) (Result, error)
}

// Propagator performs domain propagation at the focus node.
type Propagator interface {
	Propagate(env Env, conss []*Cons) (Result, error)
}

// Presolver simplifies constraints before the search starts. Handlers
// without this capability have nothing to presolve.
type Presolver interface {
	Presolve(env Env, conss []*Cons) (Result, error)
}

// Activator is notified when one of the handler's constraints enters the
// active domain scope; typical implementations catch bound-change events of
// the constraint's variables here.
type Activator interface {
	Activate(cons *Cons) error
}

// Deactivator is notified when one of the handler's constraints leaves the
// active scope; subscriptions taken in Activate must be dropped here.
type Deactivator interface {
	Deactivate(cons *Cons) error
}

// Props carries a handler's dispatch parameters.
type Props struct {
	// SepaPriority orders handlers in separation rounds (higher first).
	SepaPriority int
	// EnfoPriority orders handlers in enforcement rounds (higher first).
	EnfoPriority int
	// CheckPriority orders handlers in solution checks (higher first).
	CheckPriority int

	// SepaFreq controls how often separation runs: -1 never, 0 only at the
	// root, k > 0 at every k-th depth level.
	SepaFreq int
	// PropFreq controls propagation frequency with the same encoding.
	PropFreq int

	// NeedsCons, if false, lets the handler run even with no registered
	// constraint instances (used by the integrality handler).
	NeedsCons bool
}

// runsAtDepth evaluates the frequency encoding against a node depth.
func runsAtDepth(freq, depth int) bool {
	switch {
	case freq < 0:
		return false
	case freq == 0:
		return depth == 0
	default:
		return depth%freq == 0
	}
}
