package linear

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cipkit/cipkit/constraint"
	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

// testEnv implements constraint.Env over a real problem with immediate event
// delivery.
type testEnv struct {
	tol   *numerics.Tolerances
	p     *prob.Problem
	q     *event.Queue
	lpval map[*prob.Var]float64
	cuts  []lp.Row

	agelimit float64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		tol:   numerics.Default(),
		p:     prob.New("test", prob.Minimize),
		q:     event.NewQueue(),
		lpval: make(map[*prob.Var]float64),
	}
}

func (e *testEnv) addVar(t *testing.T, name string, lb, ub float64, integral bool) *prob.Var {
	t.Helper()
	v, err := e.p.AddVar(e.tol, e.q, name, lb, ub, 0, integral)
	require.NoError(t, err)
	return v
}

func (e *testEnv) Tol() *numerics.Tolerances { return e.tol }
func (e *testEnv) Prob() *prob.Problem       { return e.p }
func (e *testEnv) Depth() int                { return 0 }
func (e *testEnv) HasLP() bool               { return len(e.lpval) > 0 }
func (e *testEnv) LPVal(v *prob.Var) float64 { return e.lpval[v] }
func (e *testEnv) Cutoffbound() float64      { return e.tol.Infinity }
func (e *testEnv) AgeLimit() float64         { return e.agelimit }

func (e *testEnv) AddCut(row lp.Row) error {
	e.cuts = append(e.cuts, row)
	return nil
}

func (e *testEnv) BranchVar(*prob.Var, float64) error { return nil }

func (e *testEnv) TightenLb(v *prob.Var, newbound float64) (bool, bool, error) {
	if newbound > v.Ub()+e.tol.FeasTol {
		return false, true, nil
	}
	if !e.tol.IsGT(newbound, v.Lb()) {
		return false, false, nil
	}
	_, err := v.ChgLbLocal(e.tol, e.q, newbound)
	return true, false, err
}

func (e *testEnv) TightenUb(v *prob.Var, newbound float64) (bool, bool, error) {
	if newbound < v.Lb()-e.tol.FeasTol {
		return false, true, nil
	}
	if !e.tol.IsLT(newbound, v.Ub()) {
		return false, false, nil
	}
	_, err := v.ChgUbLocal(e.tol, e.q, newbound)
	return true, false, err
}

func cons(t *testing.T, name string, d *Data) *constraint.Cons {
	t.Helper()
	r := constraint.NewRegistry()
	require.NoError(t, r.Register(New(numerics.Default()), Props()))
	c, err := r.AddCons("linear", name, d)
	require.NoError(t, err)
	require.NoError(t, c.Activate())
	return c
}

func TestCheck(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 0, 10, false)
	y := env.addVar(t, "y", 0, 10, false)

	// 1 <= x + 2y <= 6
	d := &Data{Vars: []*prob.Var{x, y}, Coefs: []float64{1, 2}, Lhs: 1, Rhs: 6}
	c := cons(t, "c", d)

	h := New(env.tol)
	res, err := h.Check(env, []float64{2, 1}, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Feasible, res, "activity 4 is inside [1,6]")

	res, err = h.Check(env, []float64{4, 2}, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Infeasible, res, "activity 8 exceeds rhs")

	res, err = h.Check(env, []float64{0, 0}, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Infeasible, res, "activity 0 undercuts lhs")
}

func TestSeparateAddsViolatedRow(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 0, 10, false)
	y := env.addVar(t, "y", 0, 10, false)

	d := &Data{Vars: []*prob.Var{x, y}, Coefs: []float64{3, 1}, Lhs: -env.tol.Infinity, Rhs: 5}
	c := cons(t, "cap", d)

	env.lpval[x] = 2
	env.lpval[y] = 1 // activity 7 > 5

	res, err := New(env.tol).Separate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Separated, res)
	require.Len(t, env.cuts, 1)
	require.Equal(t, "cap", env.cuts[0].Name)
	require.InDelta(t, 7.0, env.cuts[0].Activity([]float64{2, 1}), 1e-9)

	// satisfied point: nothing to separate
	env.cuts = nil
	env.lpval[x] = 1
	env.lpval[y] = 1
	res, err = New(env.tol).Separate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.DidNotFind, res)
	require.Empty(t, env.cuts)
}

func TestPropagateTightensBounds(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 0, 10, true)
	y := env.addVar(t, "y", 0, 10, true)

	// 2x + 3y <= 12
	d := &Data{Vars: []*prob.Var{x, y}, Coefs: []float64{2, 3}, Lhs: -env.tol.Infinity, Rhs: 12}
	c := cons(t, "c", d)

	res, err := New(env.tol).Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.ReducedDom, res)
	require.InDelta(t, 6.0, x.Ub(), 1e-9, "x <= (12-0)/2")
	require.InDelta(t, 4.0, y.Ub(), 1e-9, "y <= (12-0)/3")
}

func TestPropagateNegativeCoefficient(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 0, 10, true)

	// -x <= -4, i.e. x >= 4
	d := &Data{Vars: []*prob.Var{x}, Coefs: []float64{-1}, Lhs: -env.tol.Infinity, Rhs: -4}
	c := cons(t, "c", d)

	res, err := New(env.tol).Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.ReducedDom, res)
	require.InDelta(t, 4.0, x.Lb(), 1e-9)
}

func TestPropagateDetectsCutoff(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 3, 10, false)
	y := env.addVar(t, "y", 2, 10, false)

	// x + y <= 4 but minimal activity is 5
	d := &Data{Vars: []*prob.Var{x, y}, Coefs: []float64{1, 1}, Lhs: -env.tol.Infinity, Rhs: 4}
	c := cons(t, "c", d)

	res, err := New(env.tol).Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Cutoff, res)
}

func TestEnforceLPSeparatesViolation(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 0, 10, false)

	d := &Data{Vars: []*prob.Var{x}, Coefs: []float64{1}, Lhs: 2, Rhs: env.tol.Infinity}
	c := cons(t, "c", d)

	env.lpval[x] = 0
	res, err := New(env.tol).EnforceLP(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Separated, res)
	require.Len(t, env.cuts, 1)

	env.lpval[x] = 3
	res, err = New(env.tol).EnforceLP(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Feasible, res)
}

func TestEnforceLPAgesOutSatisfiedConstraints(t *testing.T) {
	env := newTestEnv(t)
	env.agelimit = 2
	x := env.addVar(t, "x", 0, 10, false)

	d := &Data{Vars: []*prob.Var{x}, Coefs: []float64{1}, Lhs: -env.tol.Infinity, Rhs: 5}
	c := cons(t, "c", d)
	env.lpval[x] = 0

	h := New(env.tol)
	for i := 0; i < 3; i++ {
		require.Equal(t, constraint.ConsEnabled, c.State())
		_, err := h.EnforceLP(env, []*constraint.Cons{c})
		require.NoError(t, err)
	}
	require.Equal(t, constraint.ConsDisabled, c.State())

	// a violation makes the constraint useful again
	env.lpval[x] = 9
	c.ResetAge()
	require.Equal(t, constraint.ConsEnabled, c.State())
	require.Zero(t, c.Age())
}

func TestLockDirections(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 0, 10, false)
	y := env.addVar(t, "y", 0, 10, false)

	// x - y <= 3: rounding x up or y down can violate
	d := &Data{Vars: []*prob.Var{x, y}, Coefs: []float64{1, -1}, Lhs: -env.tol.Infinity, Rhs: 3}
	cons(t, "c", d) // AddCons installs the locks

	require.Equal(t, 0, x.LocksDown())
	require.Equal(t, 1, x.LocksUp())
	require.Equal(t, 1, y.LocksDown())
	require.Equal(t, 0, y.LocksUp())
}

func TestLockHonorsCustomInfinity(t *testing.T) {
	env := newTestEnv(t)
	env.tol = &numerics.Tolerances{Epsilon: 1e-9, FeasTol: 1e-6, Infinity: 1e6}
	x := env.addVar(t, "x", 0, 10, false)

	// rhs is beyond the configured infinity threshold: the row is one-sided
	d := &Data{Vars: []*prob.Var{x}, Coefs: []float64{1}, Lhs: 2, Rhs: 5e6}
	r := constraint.NewRegistry()
	require.NoError(t, r.Register(New(env.tol), Props()))
	_, err := r.AddCons("linear", "c", d)
	require.NoError(t, err)

	require.Equal(t, 1, x.LocksDown())
	require.Equal(t, 0, x.LocksUp())
}

func TestRowConversion(t *testing.T) {
	env := newTestEnv(t)
	x := env.addVar(t, "x", 0, 1, true)
	y := env.addVar(t, "y", 0, 1, true)

	d := &Data{Vars: []*prob.Var{x, y}, Coefs: []float64{2, 5}, Lhs: 1, Rhs: 7}
	row := d.Row("r")
	require.Equal(t, []int{0, 1}, row.Idx)
	require.InDelta(t, 9.0, row.Activity([]float64{2, 1}), 1e-9)
}
