package constraint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

// stubEnv satisfies Env for dispatch tests; no relaxation, depth 0.
type stubEnv struct {
	tol  *numerics.Tolerances
	p    *prob.Problem
	dpth int
}

func (e *stubEnv) Tol() *numerics.Tolerances { return e.tol }
func (e *stubEnv) Prob() *prob.Problem       { return e.p }
func (e *stubEnv) Depth() int                { return e.dpth }
func (e *stubEnv) HasLP() bool               { return false }
func (e *stubEnv) LPVal(v *prob.Var) float64 {
	if v.Obj() >= 0 {
		return v.Lb()
	}
	return v.Ub()
}
func (e *stubEnv) Cutoffbound() float64               { return e.tol.Infinity }
func (e *stubEnv) AgeLimit() float64                  { return 0 }
func (e *stubEnv) AddCut(lp.Row) error                { return nil }
func (e *stubEnv) BranchVar(*prob.Var, float64) error { return nil }
func (e *stubEnv) TightenLb(*prob.Var, float64) (bool, bool, error) {
	return false, false, nil
}
func (e *stubEnv) TightenUb(*prob.Var, float64) (bool, bool, error) {
	return false, false, nil
}

func newStubEnv() *stubEnv {
	return &stubEnv{tol: numerics.Default(), p: prob.New("test", prob.Minimize)}
}

// scripted is a handler whose round results are preprogrammed; it records
// every invocation so tests can assert dispatch order and short-circuiting.
type scripted struct {
	name  string
	calls *[]string

	enforceRes  Result
	checkRes    Result
	separateRes Result
	pseudoRes   Result
}

func (h *scripted) Name() string { return h.name }

func (h *scripted) EnforceLP(Env, []*Cons) (Result, error) {
	*h.calls = append(*h.calls, h.name+":enforce")
	return h.enforceRes, nil
}

func (h *scripted) Check(Env, []float64, []*Cons) (Result, error) {
	*h.calls = append(*h.calls, h.name+":check")
	return h.checkRes, nil
}

func (h *scripted) Separate(Env, []*Cons) (Result, error) {
	*h.calls = append(*h.calls, h.name+":separate")
	return h.separateRes, nil
}

func (h *scripted) EnforcePseudo(Env, []*Cons) (Result, error) {
	*h.calls = append(*h.calls, h.name+":pseudo")
	return h.pseudoRes, nil
}

func (h *scripted) Lock(*Cons, int, int) error { return nil }

func TestConsStateMachine(t *testing.T) {
	calls := []string{}
	h := &scripted{name: "h", calls: &calls}
	r := NewRegistry()
	require.NoError(t, r.Register(h, Props{NeedsCons: true}))

	c, err := r.AddCons("h", "c1", nil)
	require.NoError(t, err)
	require.Equal(t, ConsInactive, c.State())

	require.NoError(t, c.Activate())
	require.Equal(t, ConsEnabled, c.State())
	require.True(t, c.Enabled())

	c.Disable()
	require.Equal(t, ConsDisabled, c.State())
	c.Enable()
	require.Equal(t, ConsEnabled, c.State())

	require.NoError(t, c.Deactivate())
	require.Equal(t, ConsInactive, c.State())

	require.NoError(t, r.DelCons(c))
	require.Equal(t, ConsDeleted, c.State())
}

func TestConsStateContractViolations(t *testing.T) {
	calls := []string{}
	h := &scripted{name: "h", calls: &calls}
	r := NewRegistry()
	require.NoError(t, r.Register(h, Props{}))

	c, err := r.AddCons("h", "c1", nil)
	require.NoError(t, err)

	require.Panics(t, func() { c.Disable() }, "disable of inactive constraint")
	require.Panics(t, func() { c.Enable() }, "enable of inactive constraint")
	require.NoError(t, c.Activate())
	require.Panics(t, func() { _ = c.Activate() }, "double activation")
	require.Panics(t, func() { _ = r.DelCons(c) }, "delete of active constraint")
}

func TestConsAging(t *testing.T) {
	calls := []string{}
	h := &scripted{name: "h", calls: &calls}
	r := NewRegistry()
	require.NoError(t, r.Register(h, Props{}))
	c, err := r.AddCons("h", "c1", nil)
	require.NoError(t, err)
	require.NoError(t, c.Activate())

	for i := 0; i < 3; i++ {
		c.IncAge(2)
	}
	require.Equal(t, ConsDisabled, c.State(), "aged past limit")

	c.ResetAge()
	require.Equal(t, ConsEnabled, c.State())
	require.Zero(t, c.Age())
}

func TestRegisterDuplicateName(t *testing.T) {
	calls := []string{}
	r := NewRegistry()
	require.NoError(t, r.Register(&scripted{name: "dup", calls: &calls}, Props{}))
	require.Error(t, r.Register(&scripted{name: "dup", calls: &calls}, Props{}))
}

func TestAddConsUnknownHandler(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddCons("nosuch", "c1", nil)
	require.Error(t, err)
}

func TestEnforcePriorityOrderAndShortCircuit(t *testing.T) {
	calls := []string{}
	a := &scripted{name: "a", calls: &calls, enforceRes: Cutoff}
	b := &scripted{name: "b", calls: &calls, enforceRes: Feasible}
	c := &scripted{name: "c", calls: &calls, enforceRes: Feasible}

	r := NewRegistry()
	require.NoError(t, r.Register(b, Props{EnfoPriority: 10}))
	require.NoError(t, r.Register(c, Props{EnfoPriority: 10}))
	require.NoError(t, r.Register(a, Props{EnfoPriority: 100}))

	res, err := r.EnforceLP(newStubEnv())
	require.NoError(t, err)
	require.Equal(t, Cutoff, res)
	// a has the highest priority and cuts off; b and c never run.
	require.Equal(t, []string{"a:enforce"}, calls)
}

func TestEnforceTiesBreakByRegistrationOrder(t *testing.T) {
	calls := []string{}
	a := &scripted{name: "a", calls: &calls, enforceRes: DidNotFind}
	b := &scripted{name: "b", calls: &calls, enforceRes: DidNotFind}

	r := NewRegistry()
	require.NoError(t, r.Register(b, Props{EnfoPriority: 5}))
	require.NoError(t, r.Register(a, Props{EnfoPriority: 5}))

	res, err := r.EnforceLP(newStubEnv())
	require.NoError(t, err)
	require.Equal(t, Feasible, res, "no handler objected")
	require.Equal(t, []string{"b:enforce", "a:enforce"}, calls)
}

func TestCheckShortCircuitsOnViolation(t *testing.T) {
	calls := []string{}
	a := &scripted{name: "a", calls: &calls, checkRes: Feasible}
	b := &scripted{name: "b", calls: &calls, checkRes: Infeasible}
	c := &scripted{name: "c", calls: &calls, checkRes: Feasible}

	r := NewRegistry()
	require.NoError(t, r.Register(a, Props{CheckPriority: 30}))
	require.NoError(t, r.Register(b, Props{CheckPriority: 20}))
	require.NoError(t, r.Register(c, Props{CheckPriority: 10}))

	res, err := r.CheckSol(newStubEnv(), nil)
	require.NoError(t, err)
	require.Equal(t, Infeasible, res)
	require.Equal(t, []string{"a:check", "b:check"}, calls, "c must not be reached")
}

func TestSeparateHonorsFrequency(t *testing.T) {
	calls := []string{}
	rootOnly := &scripted{name: "root", calls: &calls, separateRes: DidNotFind}
	everyTwo := &scripted{name: "two", calls: &calls, separateRes: DidNotFind}
	never := &scripted{name: "never", calls: &calls, separateRes: DidNotFind}

	r := NewRegistry()
	require.NoError(t, r.Register(rootOnly, Props{SepaFreq: 0}))
	require.NoError(t, r.Register(everyTwo, Props{SepaFreq: 2}))
	require.NoError(t, r.Register(never, Props{SepaFreq: -1}))

	env := newStubEnv()

	calls = calls[:0]
	_, err := r.Separate(env, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"root:separate", "two:separate"}, calls)

	calls = calls[:0]
	env.dpth = 3
	_, err = r.Separate(env, 3)
	require.NoError(t, err)
	require.Empty(t, calls)

	calls = calls[:0]
	_, err = r.Separate(env, 4)
	require.NoError(t, err)
	require.Equal(t, []string{"two:separate"}, calls)
}

func TestSeparateStopsAtCutoff(t *testing.T) {
	calls := []string{}
	a := &scripted{name: "a", calls: &calls, separateRes: Separated}
	b := &scripted{name: "b", calls: &calls, separateRes: Cutoff}
	c := &scripted{name: "c", calls: &calls, separateRes: Separated}

	r := NewRegistry()
	require.NoError(t, r.Register(a, Props{SepaPriority: 3, SepaFreq: 1}))
	require.NoError(t, r.Register(b, Props{SepaPriority: 2, SepaFreq: 1}))
	require.NoError(t, r.Register(c, Props{SepaPriority: 1, SepaFreq: 1}))

	res, err := r.Separate(newStubEnv(), 1)
	require.NoError(t, err)
	require.Equal(t, Cutoff, res)
	require.Equal(t, []string{"a:separate", "b:separate"}, calls)
}

func TestSeparateMergesResults(t *testing.T) {
	calls := []string{}
	a := &scripted{name: "a", calls: &calls, separateRes: ReducedDom}
	b := &scripted{name: "b", calls: &calls, separateRes: Separated}

	r := NewRegistry()
	require.NoError(t, r.Register(a, Props{SepaFreq: 1}))
	require.NoError(t, r.Register(b, Props{SepaFreq: 1}))

	res, err := r.Separate(newStubEnv(), 1)
	require.NoError(t, err)
	require.Equal(t, Separated, res, "separated dominates reduceddom")
}

// onlyEnforce lacks the PseudoEnforcer capability on purpose.
type onlyEnforce struct {
	name  string
	calls *[]string
}

func (h *onlyEnforce) Name() string { return h.name }
func (h *onlyEnforce) EnforceLP(Env, []*Cons) (Result, error) {
	*h.calls = append(*h.calls, h.name+":enforce")
	return Feasible, nil
}
func (h *onlyEnforce) Check(Env, []float64, []*Cons) (Result, error) { return Feasible, nil }
func (h *onlyEnforce) Lock(*Cons, int, int) error                    { return nil }

func TestEnforcePseudoSkipsIncapableHandlers(t *testing.T) {
	calls := []string{}
	plain := &onlyEnforce{name: "plain", calls: &calls}
	capable := &scripted{name: "capable", calls: &calls, pseudoRes: SolveLP}

	r := NewRegistry()
	require.NoError(t, r.Register(plain, Props{EnfoPriority: 100}))
	require.NoError(t, r.Register(capable, Props{EnfoPriority: 1}))

	res, err := r.EnforcePseudo(newStubEnv())
	require.NoError(t, err)
	require.Equal(t, SolveLP, res)
	require.Equal(t, []string{"capable:pseudo"}, calls)
}

type presolving struct {
	scripted
	presolveRes Result
}

func (h *presolving) Presolve(Env, []*Cons) (Result, error) {
	*h.calls = append(*h.calls, h.name+":presolve")
	return h.presolveRes, nil
}

func TestPresolveSkipsIncapableAndStopsAtCutoff(t *testing.T) {
	calls := []string{}
	plain := &onlyEnforce{name: "plain", calls: &calls}
	reducer := &presolving{scripted: scripted{name: "reducer", calls: &calls}, presolveRes: ReducedDom}
	pruner := &presolving{scripted: scripted{name: "pruner", calls: &calls}, presolveRes: Cutoff}

	r := NewRegistry()
	require.NoError(t, r.Register(plain, Props{EnfoPriority: 100}))
	require.NoError(t, r.Register(reducer, Props{EnfoPriority: 10}))
	require.NoError(t, r.Register(pruner, Props{EnfoPriority: 1}))

	res, err := r.Presolve(newStubEnv())
	require.NoError(t, err)
	require.Equal(t, Cutoff, res)
	require.Equal(t, []string{"reducer:presolve", "pruner:presolve"}, calls)

	// without the pruner, the reduction survives the round
	calls = calls[:0]
	r = NewRegistry()
	require.NoError(t, r.Register(reducer, Props{}))
	res, err = r.Presolve(newStubEnv())
	require.NoError(t, err)
	require.Equal(t, ReducedDom, res)
}

func TestNeedsConsSkipsWhenEmpty(t *testing.T) {
	calls := []string{}
	needy := &scripted{name: "needy", calls: &calls, enforceRes: Infeasible}
	free := &scripted{name: "free", calls: &calls, enforceRes: Feasible}

	r := NewRegistry()
	require.NoError(t, r.Register(needy, Props{EnfoPriority: 10, NeedsCons: true}))
	require.NoError(t, r.Register(free, Props{EnfoPriority: 1, NeedsCons: false}))

	res, err := r.EnforceLP(newStubEnv())
	require.NoError(t, err)
	require.Equal(t, Feasible, res)
	require.Equal(t, []string{"free:enforce"}, calls, "needy has no constraints and is skipped")
}

func TestRunsAtDepth(t *testing.T) {
	require.False(t, runsAtDepth(-1, 0))
	require.True(t, runsAtDepth(0, 0))
	require.False(t, runsAtDepth(0, 1))
	require.True(t, runsAtDepth(1, 7))
	require.True(t, runsAtDepth(3, 6))
	require.False(t, runsAtDepth(3, 7))
}

func TestResultString(t *testing.T) {
	require.Equal(t, "cutoff", Cutoff.String())
	require.Equal(t, "solvelp", SolveLP.String())
	require.True(t, Branched.decisive())
	require.False(t, DidNotFind.decisive())
}
