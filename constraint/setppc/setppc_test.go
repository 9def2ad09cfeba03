package setppc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cipkit/cipkit/constraint"
	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

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

func (e *testEnv) binVars(t *testing.T, names ...string) []*prob.Var {
	t.Helper()
	vars := make([]*prob.Var, len(names))
	for i, name := range names {
		v, err := e.p.AddVar(e.tol, e.q, name, 0, 1, 0, true)
		require.NoError(t, err)
		vars[i] = v
	}
	return vars
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

func newCons(t *testing.T, env *testEnv, name string, kind Kind, vars []*prob.Var) *constraint.Cons {
	t.Helper()
	d, err := NewData(kind, vars)
	require.NoError(t, err)
	r := constraint.NewRegistry()
	require.NoError(t, r.Register(New(), Props()))
	c, err := r.AddCons("setppc", name, d)
	require.NoError(t, err)
	require.NoError(t, c.Activate())
	return c
}

func TestNewDataRejectsNonBinary(t *testing.T) {
	env := newTestEnv(t)
	v, err := env.p.AddVar(env.tol, env.q, "x", 0, 5, 0, true)
	require.NoError(t, err)
	_, err = NewData(Packing, []*prob.Var{v})
	require.Error(t, err)
}

func TestNewDataRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "x")
	_, err := NewData(Packing, []*prob.Var{vars[0], vars[0]})
	require.Error(t, err)
}

func TestMembershipAndOverlap(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b", "c")

	d1, err := NewData(Packing, vars[:2])
	require.NoError(t, err)
	d2, err := NewData(Covering, vars[1:])
	require.NoError(t, err)
	d3, err := NewData(Covering, vars[2:])
	require.NoError(t, err)

	require.True(t, d1.Contains(vars[0].Index()))
	require.False(t, d1.Contains(vars[2].Index()))
	require.True(t, d1.Overlaps(d2), "share b")
	require.False(t, d1.Overlaps(d3))
}

func TestCheckFlavors(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b", "c")
	h := New()

	for _, tc := range []struct {
		kind Kind
		vals []float64
		want constraint.Result
	}{
		{Partitioning, []float64{1, 0, 0}, constraint.Feasible},
		{Partitioning, []float64{1, 1, 0}, constraint.Infeasible},
		{Partitioning, []float64{0, 0, 0}, constraint.Infeasible},
		{Packing, []float64{0, 0, 0}, constraint.Feasible},
		{Packing, []float64{0, 1, 0}, constraint.Feasible},
		{Packing, []float64{1, 0, 1}, constraint.Infeasible},
		{Covering, []float64{1, 1, 0}, constraint.Feasible},
		{Covering, []float64{0, 0, 0}, constraint.Infeasible},
	} {
		c := newCons(t, env, tc.kind.String(), tc.kind, vars)
		res, err := h.Check(env, tc.vals, []*constraint.Cons{c})
		require.NoError(t, err)
		require.Equal(t, tc.want, res, "%s with %v", tc.kind, tc.vals)
	}
}

func TestPropagatePackingFixesZeros(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b", "c")
	c := newCons(t, env, "pack", Packing, vars)

	// fix a to one; b and c must drop to zero
	_, err := vars[0].ChgLbLocal(env.tol, env.q, 1)
	require.NoError(t, err)
	require.NoError(t, env.q.ProcessAll())

	res, err := New().Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.ReducedDom, res)
	require.InDelta(t, 0.0, vars[1].Ub(), 1e-9)
	require.InDelta(t, 0.0, vars[2].Ub(), 1e-9)
}

func TestPropagateCoveringFixesSurvivor(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b", "c")
	c := newCons(t, env, "cover", Covering, vars)

	for _, v := range vars[:2] {
		_, err := v.ChgUbLocal(env.tol, env.q, 0)
		require.NoError(t, err)
	}
	require.NoError(t, env.q.ProcessAll())

	res, err := New().Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.ReducedDom, res)
	require.InDelta(t, 1.0, vars[2].Lb(), 1e-9, "last member must cover")
}

func TestPropagateDetectsCutoff(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b")
	c := newCons(t, env, "part", Partitioning, vars)

	for _, v := range vars {
		_, err := v.ChgLbLocal(env.tol, env.q, 1)
		require.NoError(t, err)
	}
	require.NoError(t, env.q.ProcessAll())

	res, err := New().Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Cutoff, res, "two members at one")
}

func TestPropagateSkipsCleanConstraints(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b")
	c := newCons(t, env, "pack", Packing, vars)

	res, err := New().Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.DidNotFind, res)

	// nothing moved since: the constraint is clean and skipped entirely
	res, err = New().Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.DidNotRun, res)

	// a member bound change re-dirties it through the event filter
	_, err = vars[0].ChgLbLocal(env.tol, env.q, 1)
	require.NoError(t, err)
	require.NoError(t, env.q.ProcessAll())

	res, err = New().Propagate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.ReducedDom, res)
}

func TestDeactivateDropsSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b")
	c := newCons(t, env, "pack", Packing, vars)

	require.Equal(t, 1, vars[0].Filter().Len())
	require.NoError(t, c.Deactivate())
	require.Equal(t, 0, vars[0].Filter().Len())
	require.Equal(t, 0, vars[1].Filter().Len())
}

func TestSeparateAddsViolatedRow(t *testing.T) {
	env := newTestEnv(t)
	vars := env.binVars(t, "a", "b", "c")
	c := newCons(t, env, "part", Partitioning, vars)

	for _, v := range vars {
		env.lpval[v] = 0.6 // sum 1.8 violates = 1
	}
	res, err := New().Separate(env, []*constraint.Cons{c})
	require.NoError(t, err)
	require.Equal(t, constraint.Separated, res)
	require.Len(t, env.cuts, 1)
	require.InDelta(t, 1.0, env.cuts[0].Lhs, 1e-9)
	require.InDelta(t, 1.0, env.cuts[0].Rhs, 1e-9)
}

func TestLockDirections(t *testing.T) {
	env := newTestEnv(t)

	pack := env.binVars(t, "p1", "p2")
	newCons(t, env, "pack", Packing, pack)
	require.Equal(t, 0, pack[0].LocksDown())
	require.Equal(t, 1, pack[0].LocksUp())

	cover := env.binVars(t, "c1", "c2")
	newCons(t, env, "cover", Covering, cover)
	require.Equal(t, 1, cover[0].LocksDown())
	require.Equal(t, 0, cover[0].LocksUp())

	part := env.binVars(t, "x1", "x2")
	newCons(t, env, "part", Partitioning, part)
	require.Equal(t, 1, part[0].LocksDown())
	require.Equal(t, 1, part[0].LocksUp())
}
