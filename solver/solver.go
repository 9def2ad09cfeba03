// Package solver implements the branch-and-bound search driver: it focuses
// nodes picked by the node selector, moves the local domains along the tree
// by applying and undoing bound changes, runs the constraint handler rounds
// (propagation, separation, enforcement) and manages the incumbent and the
// open-node queue.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cipkit/cipkit/constraint"
	"github.com/cipkit/cipkit/debug"
	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/logger"
	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
	"github.com/cipkit/cipkit/tree"
)

// Status is the final state of a search run.
type Status uint8

const (
	StatusUnknown Status = iota
	// StatusOptimal: the incumbent is proven optimal.
	StatusOptimal
	// StatusInfeasible: the problem has no feasible solution.
	StatusInfeasible
	// StatusUnbounded: the objective is unbounded from below.
	StatusUnbounded
	StatusNodeLimit
	StatusTimeLimit
	StatusGapLimit
	StatusSolLimit
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusNodeLimit:
		return "nodelimit"
	case StatusTimeLimit:
		return "timelimit"
	case StatusGapLimit:
		return "gaplimit"
	case StatusSolLimit:
		return "sollimit"
	case StatusInterrupted:
		return "interrupted"
	}
	return "unknown"
}

// Result is the outcome of a search run.
type Result struct {
	Status    Status
	Objective float64
	Vals      []float64 // best solution, nil if none was found
	Stats     *Stats
}

// enforcement passes per node before the search reports a handler cycle
const maxEnforcePasses = 1000

var errUnbounded = errors.New("solver: relaxation unbounded")

// Solver runs the branch-and-bound search on one problem. It is not safe for
// concurrent use; run independent solvers for parallelism.
type Solver struct {
	cfg config
	p   *prob.Problem
	reg *constraint.Registry

	pq     *tree.NodePQ
	queue  *event.Queue
	primal *primal
	stats  *Stats
	log    zerolog.Logger

	lpreal lp.Solver
	pseudo *lp.PseudoSolver

	focus    *tree.Node
	deadEnd  bool
	nodeIDs  uint64
	cuts     []lp.Row
	lpsol    lp.Solution
	hasLP    bool
	branched bool
	evstats  *statsHandler

	done bool
}

// New creates a solver for p with the handlers registered in reg.
func New(p *prob.Problem, reg *constraint.Registry, opts ...Option) (*Solver, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	sel, err := cfg.selector()
	if err != nil {
		return nil, err
	}
	return &Solver{
		cfg:     cfg,
		p:       p,
		reg:     reg,
		pq:      tree.NewNodePQ(cfg.tol, numerics.DefaultGrow(), sel),
		queue:   event.NewQueue(),
		primal:  newPrimal(cfg.tol, p),
		log:     logger.Logger().With().Str("component", "solver").Str("prob", p.Name()).Logger(),
		lpreal:  cfg.lpsolver,
		pseudo:  &lp.PseudoSolver{Tol: cfg.tol},
		evstats: &statsHandler{},
	}, nil
}

// Queue returns the solver's event queue; problem modifications before Solve
// go through it.
func (s *Solver) Queue() *event.Queue { return s.queue }

// Solve runs the search to completion or a limit. A Solver solves once.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	if s.done {
		return nil, fmt.Errorf("solver: Solve called twice")
	}
	s.done = true
	if s.p.Sense() != prob.Minimize {
		return nil, fmt.Errorf("solver: only minimization is supported; negate the objective to maximize")
	}

	s.stats = newStats()
	s.log.Info().Str("run", s.stats.RunID.String()).
		Int("vars", s.p.NVars()).
		Str("selector", s.pq.Selector().Name()).
		Msg("starting search")

	s.p.ResetLocalBounds()
	evmask := event.NodeFocused | event.SolFound
	evpos := s.p.Filter().Catch(evmask, s.evstats, nil)
	defer s.p.Filter().Drop(evmask, s.evstats, nil, evpos)

	if err := s.reg.ActivateAll(); err != nil {
		return nil, err
	}
	defer func() { _ = s.reg.DeactivateAll() }()

	if res, err := s.presolve(); err != nil {
		return nil, err
	} else if res == constraint.Cutoff {
		s.stats.Elapsed = time.Since(s.stats.Start)
		s.log.Info().Msg("presolving detected infeasibility")
		return &Result{Status: StatusInfeasible, Stats: s.stats}, nil
	}

	s.pq.Insert(tree.NewRoot(s.newNodeID(), -s.cfg.tol.Infinity))

	status := StatusUnknown
	for s.pq.Len() > 0 {
		if ctx.Err() != nil {
			status = StatusInterrupted
			break
		}
		if st, hit := s.limitReached(); hit {
			status = st
			break
		}

		node := s.pq.Selector().Select(s.pq)
		if err := s.focusNode(node); err != nil {
			return nil, err
		}
		s.stats.NNodes++
		// the root carries the -infinity sentinel until its first relaxation
		if lb := node.Lowerbound(); !s.cfg.tol.IsNegInfinity(lb) {
			s.stats.LowerboundSum += lb
		}
		if node.Depth() > s.stats.MaxDepth {
			s.stats.MaxDepth = node.Depth()
		}

		dead, err := s.processFocus(ctx)
		if errors.Is(err, errUnbounded) {
			status = StatusUnbounded
			break
		}
		if err != nil {
			return nil, err
		}
		s.deadEnd = dead
		if !dead {
			node.SetType(tree.Junction)
		}
	}
	s.stats.Elapsed = time.Since(s.stats.Start)
	s.stats.NSols = s.evstats.nSols

	if status == StatusUnknown {
		if s.primal.Best() != nil {
			status = StatusOptimal
		} else {
			status = StatusInfeasible
		}
	}

	res := &Result{Status: status, Objective: s.cfg.tol.Infinity, Stats: s.stats}
	if best := s.primal.Best(); best != nil {
		res.Objective = best.Obj
		res.Vals = append([]float64(nil), best.Vals...)
	}
	s.log.Info().Str("status", status.String()).
		Uint64("nodes", s.stats.NNodes).
		Uint64("lps", s.stats.NLPs).
		Float64("obj", res.Objective).
		Dur("elapsed", s.stats.Elapsed).
		Msg("search finished")
	return res, nil
}

func (s *Solver) newNodeID() uint64 {
	s.nodeIDs++
	return s.nodeIDs
}

func (s *Solver) limitReached() (Status, bool) {
	if s.cfg.nodeLimit > 0 && s.stats.NNodes >= s.cfg.nodeLimit {
		return StatusNodeLimit, true
	}
	if s.cfg.timeLimit > 0 && time.Since(s.stats.Start) >= s.cfg.timeLimit {
		return StatusTimeLimit, true
	}
	if s.cfg.solLimit > 0 && s.evstats.nSols >= s.cfg.solLimit {
		return StatusSolLimit, true
	}
	if s.cfg.gapLimit > 0 && s.primal.Gap(s.Dualbound()) <= s.cfg.gapLimit {
		return StatusGapLimit, true
	}
	return StatusUnknown, false
}

// Dualbound returns the proven global lower bound: the minimum over the open
// nodes, or the incumbent objective once the queue is exhausted.
func (s *Solver) Dualbound() float64 {
	if s.pq.Len() == 0 {
		return s.primal.Upperbound()
	}
	return s.pq.Lowerbound()
}

// presolve runs presolving rounds until no handler reduces a domain anymore.
// Domain reductions made here are global: no node is focused yet, so they are
// never undone during the search.
func (s *Solver) presolve() (constraint.Result, error) {
	for round := 0; ; round++ {
		res, err := s.reg.Presolve(s)
		if err != nil {
			return res, err
		}
		if res != constraint.ReducedDom {
			return res, nil
		}
		if round >= maxEnforcePasses {
			return res, fmt.Errorf("solver: presolving did not settle after %d rounds", round)
		}
		s.log.Debug().Int("round", round).Msg("presolving reduced domains")
	}
}

// focusNode moves the local domains from the current focus to next: bound
// changes along the old branch are undone up to the common ancestor and the
// changes of the new branch applied below it. The event queue is delayed for
// the whole switch so intermediate bound flips collapse.
func (s *Solver) focusNode(next *tree.Node) error {
	s.queue.Delay()

	old := s.focus
	var apply []*tree.Node
	a, b := old, next
	for a != b {
		if a != nil && (b == nil || a.Depth() >= b.Depth()) {
			dom := a.DomChg()
			for i := len(dom) - 1; i >= 0; i-- {
				if err := dom[i].Undo(s.queue); err != nil {
					return err
				}
			}
			parent := a.Parent()
			if a == old && s.deadEnd {
				a.Free()
			}
			a = parent
		} else {
			apply = append(apply, b)
			b = b.Parent()
		}
	}
	for i := len(apply) - 1; i >= 0; i-- {
		for _, bc := range apply[i].DomChg() {
			if err := bc.Apply(s.queue); err != nil {
				return err
			}
		}
	}

	s.focus = next
	if err := s.queue.Add(s.p.Filter(), event.NewNodeFocused(next)); err != nil {
		return err
	}
	return s.queue.ProcessAll()
}

// processFocus works on the focus node until it is resolved. It reports
// whether the node is a dead end (pruned, infeasible or turned into a
// solution) as opposed to branched.
func (s *Solver) processFocus(ctx context.Context) (bool, error) {
	tol := s.cfg.tol
	node := s.focus
	depth := node.Depth()
	env := constraint.Env(s)
	sepaRounds := 0
	s.branched = false
	s.lpsol = lp.Solution{}
	s.hasLP = false

	for pass := 0; pass < maxEnforcePasses; pass++ {
		if tol.IsGE(node.Lowerbound(), s.primal.Cutoffbound()) {
			return true, nil
		}

		s.stats.NPropCalls++
		res, err := s.reg.Propagate(env, depth)
		if err != nil {
			return false, err
		}
		if res == constraint.Cutoff {
			return true, nil
		}

		if err := s.solveRelaxation(ctx); err != nil {
			return false, err
		}
		switch s.lpsol.Status {
		case lp.StatusInfeasible, lp.StatusObjLimit:
			return true, nil
		case lp.StatusUnbounded:
			return false, errUnbounded
		case lp.StatusOptimal:
			node.UpdateLowerbound(s.lpsol.Objective)
			if tol.IsGE(node.Lowerbound(), s.primal.Cutoffbound()) {
				return true, nil
			}
		}

		if s.hasLP && sepaRounds < s.cfg.sepaRounds {
			s.stats.NSepaCalls++
			res, err = s.reg.Separate(env, depth)
			if err != nil {
				return false, err
			}
			switch res {
			case constraint.Cutoff:
				return true, nil
			case constraint.Separated, constraint.ReducedDom:
				sepaRounds++
				continue // resolve against the new cuts
			}
		}

		s.stats.NEnfoCalls++
		if s.hasLP {
			res, err = s.reg.EnforceLP(env)
		} else {
			res, err = s.reg.EnforcePseudo(env)
		}
		if err != nil {
			return false, err
		}
		switch res {
		case constraint.Feasible:
			return true, s.acceptSol(env)
		case constraint.Cutoff, constraint.Infeasible:
			return true, nil
		case constraint.Branched:
			if !s.branched {
				return false, fmt.Errorf("solver: handler reported branching without creating children at node %d", node.ID())
			}
			return false, nil
		case constraint.ReducedDom, constraint.Separated, constraint.ConsAdded:
			continue
		case constraint.SolveLP:
			if s.lpreal == nil {
				return false, fmt.Errorf("solver: handler demands a relaxation but no LP solver is configured")
			}
			continue
		default:
			return false, fmt.Errorf("solver: unexpected enforcement result %s at node %d", res, node.ID())
		}
	}
	return false, fmt.Errorf("solver: node %d not resolved after %d passes", node.ID(), maxEnforcePasses)
}

// solveRelaxation solves the configured LP over the problem and the cut pool,
// falling back to the pseudo solution when no backend is configured or it
// fails. The pseudo objective is still a valid dual bound.
func (s *Solver) solveRelaxation(ctx context.Context) error {
	s.stats.NLPs++
	if s.lpreal != nil {
		sol, err := s.lpreal.Solve(ctx, s.p, s.cuts, s.primal.Cutoffbound())
		if err == nil && sol.Status != lp.StatusError {
			s.lpsol = sol
			s.hasLP = sol.Status == lp.StatusOptimal
			return nil
		}
		if err != nil {
			s.log.Warn().Err(err).Uint64("node", s.focus.ID()).
				Msg("relaxation solve failed, using pseudo solution")
		}
	}
	sol, err := s.pseudo.Solve(ctx, s.p, nil, s.primal.Cutoffbound())
	if err != nil {
		return err
	}
	s.lpsol = sol
	s.hasLP = false
	return nil
}

// acceptSol runs the feasibility check on the enforced point and installs it
// as the incumbent, pruning the open queue against the tightened cutoff.
func (s *Solver) acceptSol(env constraint.Env) error {
	vals := s.point()
	debug.Assert(len(vals) == s.p.NVars(), "candidate point dimension mismatch")
	res, err := s.reg.CheckSol(env, vals)
	if err != nil {
		return err
	}
	if res != constraint.Feasible {
		return fmt.Errorf("solver: enforced point fails the feasibility check at node %d", s.focus.ID())
	}
	obj := s.p.ObjValue(vals)
	added, err := s.primal.AddSol(s.queue, s.p.Filter(), obj, vals)
	if err != nil {
		return err
	}
	if added {
		for _, n := range s.pq.Bound(s.primal.Cutoffbound()) {
			n.Free()
		}
		s.log.Info().Float64("obj", obj).
			Uint64("nodes", s.stats.NNodes).
			Int("open", s.pq.Len()).
			Msg("improved incumbent")
	}
	return nil
}

// point returns the candidate solution of the current pass: the relaxation
// values if available, the pseudo point otherwise.
func (s *Solver) point() []float64 {
	if s.lpsol.Vals != nil {
		return s.lpsol.Vals
	}
	vals := make([]float64, s.p.NVars())
	for _, v := range s.p.Vars() {
		if v.Obj() >= 0 {
			vals[v.Index()] = v.Lb()
		} else {
			vals[v.Index()] = v.Ub()
		}
	}
	return vals
}

// Tol implements constraint.Env.
func (s *Solver) Tol() *numerics.Tolerances { return s.cfg.tol }

// Prob implements constraint.Env.
func (s *Solver) Prob() *prob.Problem { return s.p }

// Depth implements constraint.Env.
func (s *Solver) Depth() int {
	if s.focus == nil {
		return 0
	}
	return s.focus.Depth()
}

// HasLP implements constraint.Env.
func (s *Solver) HasLP() bool { return s.hasLP }

// AgeLimit implements constraint.Env.
func (s *Solver) AgeLimit() float64 { return s.cfg.ageLimit }

// LPVal implements constraint.Env.
func (s *Solver) LPVal(v *prob.Var) float64 {
	if s.lpsol.Vals != nil {
		return s.lpsol.Vals[v.Index()]
	}
	if v.Obj() >= 0 {
		return v.Lb()
	}
	return v.Ub()
}

// Cutoffbound implements constraint.Env.
func (s *Solver) Cutoffbound() float64 { return s.primal.Cutoffbound() }

// TightenLb implements constraint.Env: the change is recorded at the focus
// node so it is undone when the focus leaves the subtree.
func (s *Solver) TightenLb(v *prob.Var, newbound float64) (bool, bool, error) {
	tol := s.cfg.tol
	if newbound > v.Ub()+tol.FeasTol {
		return false, true, nil
	}
	if !tol.IsGT(newbound, v.Lb()) {
		return false, false, nil
	}
	bc, err := v.ChgLbLocal(tol, s.queue, newbound)
	if err != nil {
		return true, false, err
	}
	// presolving runs before any node is focused; its reductions are global
	// and never undone
	if s.focus != nil {
		s.focus.AddBoundChange(bc)
	}
	return true, false, nil
}

// TightenUb implements constraint.Env.
func (s *Solver) TightenUb(v *prob.Var, newbound float64) (bool, bool, error) {
	tol := s.cfg.tol
	if newbound < v.Lb()-tol.FeasTol {
		return false, true, nil
	}
	if !tol.IsLT(newbound, v.Ub()) {
		return false, false, nil
	}
	bc, err := v.ChgUbLocal(tol, s.queue, newbound)
	if err != nil {
		return true, false, err
	}
	if s.focus != nil {
		s.focus.AddBoundChange(bc)
	}
	return true, false, nil
}

// AddCut implements constraint.Env: cuts accumulate in a global pool handed
// to every relaxation solve.
func (s *Solver) AddCut(row lp.Row) error {
	s.cuts = append(s.cuts, row)
	s.stats.NCuts++
	return nil
}

// BranchVar implements constraint.Env: the focus node gets a down child with
// the variable bounded below the branch point and an up child bounded above
// it. An integral branch point v splits into x <= v and x >= v+1.
func (s *Solver) BranchVar(v *prob.Var, point float64) error {
	tol := s.cfg.tol
	if point < v.Lb()-tol.FeasTol || point > v.Ub()+tol.FeasTol {
		return fmt.Errorf("solver: branch point %g outside domain [%g,%g] of <%s>", point, v.Lb(), v.Ub(), v.Name())
	}
	var down, up float64
	if v.Integral() {
		down = tol.Floor(point)
		up = down + 1
		if !tol.IsFeasIntegral(point) {
			up = tol.Ceil(point)
		}
		if down < v.Lb()-tol.FeasTol || up > v.Ub()+tol.FeasTol {
			return fmt.Errorf("solver: cannot split <%s> on %g within [%g,%g]", v.Name(), point, v.Lb(), v.Ub())
		}
	} else {
		down, up = point, point
	}

	dchild := s.focus.NewChild(s.newNodeID(),
		prob.BoundChange{Var: v, Side: prob.UpperBound, Old: v.Ub(), New: down})
	uchild := s.focus.NewChild(s.newNodeID(),
		prob.BoundChange{Var: v, Side: prob.LowerBound, Old: v.Lb(), New: up})
	s.pq.Insert(dchild)
	s.pq.Insert(uchild)
	s.branched = true

	s.log.Debug().Str("var", v.Name()).Float64("point", point).
		Uint64("down", dchild.ID()).Uint64("up", uchild.ID()).
		Msg("branched")
	return nil
}
