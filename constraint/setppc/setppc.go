// Package setppc provides the constraint handler for set partitioning,
// packing and covering constraints over binary variables:
//
//	partitioning: sum x_i  = 1
//	packing:      sum x_i <= 1
//	covering:     sum x_i >= 1
//
// Variable membership is kept in a bitset keyed by problem index, and active
// constraints subscribe to bound-change events of their members so that
// propagation reruns only when a member's domain actually moved.
package setppc

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/cipkit/cipkit/constraint"
	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
)

const (
	EnfoPriority  = -50
	CheckPriority = -50
	SepaPriority  = 200
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

// Kind distinguishes the three constraint flavors.
type Kind uint8

const (
	Partitioning Kind = iota
	Packing
	Covering
)

func (k Kind) String() string {
	switch k {
	case Partitioning:
		return "partitioning"
	case Packing:
		return "packing"
	case Covering:
		return "covering"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Data is the constraint payload.
type Data struct {
	Kind Kind
	Vars []*prob.Var

	members *bitset.BitSet // member variable indices

	// event bookkeeping; set while the constraint is active
	catchpos []int
	dirty    bool // a member bound moved since the last propagation
}

// NewData builds the payload for a setppc constraint over vars, which must
// all be binary.
func NewData(kind Kind, vars []*prob.Var) (*Data, error) {
	members := bitset.New(uint(len(vars)))
	for _, v := range vars {
		if !v.Integral() || v.GlbLb() < -0.5 || v.GlbUb() > 1.5 {
			return nil, fmt.Errorf("setppc: variable <%s> is not binary", v.Name())
		}
		if members.Test(uint(v.Index())) {
			return nil, fmt.Errorf("setppc: variable <%s> appears twice", v.Name())
		}
		members.Set(uint(v.Index()))
	}
	return &Data{Kind: kind, Vars: vars, members: members, dirty: true}, nil
}

// Contains reports whether the variable with the given problem index is a
// member.
func (d *Data) Contains(idx int) bool { return d.members.Test(uint(idx)) }

// Overlaps reports whether the two constraints share a variable.
func (d *Data) Overlaps(other *Data) bool {
	return d.members.IntersectionCardinality(other.members) > 0
}

// Row converts the constraint into a relaxation row.
func (d *Data) Row(name string, tol *numerics.Tolerances) lp.Row {
	idx := make([]int, len(d.Vars))
	coefs := make([]float64, len(d.Vars))
	for i, v := range d.Vars {
		idx[i] = v.Index()
		coefs[i] = 1
	}
	lhs, rhs := 1.0, 1.0
	switch d.Kind {
	case Packing:
		lhs = -tol.Infinity
	case Covering:
		rhs = tol.Infinity
	}
	return lp.Row{Name: name, Idx: idx, Coefs: coefs, Lhs: lhs, Rhs: rhs}
}

func (d *Data) sum(val func(*prob.Var) float64) float64 {
	var s float64
	for _, v := range d.Vars {
		s += val(v)
	}
	return s
}

// satisfied reports whether the member sum s satisfies the constraint.
func (d *Data) satisfied(tol *numerics.Tolerances, s float64) bool {
	switch d.Kind {
	case Partitioning:
		return tol.IsFeasEQ(s, 1)
	case Packing:
		return tol.IsFeasLE(s, 1)
	default:
		return tol.IsFeasGE(s, 1)
	}
}

// fixedCounts counts members fixed to one and to zero in the local domains.
func (d *Data) fixedCounts() (ones, zeros int) {
	for _, v := range d.Vars {
		if v.Lb() > 0.5 {
			ones++
		} else if v.Ub() < 0.5 {
			zeros++
		}
	}
	return ones, zeros
}

// Handler implements the set partitioning / packing / covering handler.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "setppc" }

func data(c *constraint.Cons) *Data {
	d, ok := c.Data.(*Data)
	if !ok {
		panic(fmt.Sprintf("setppc: constraint <%s> carries %T", c.Name(), c.Data))
	}
	return d
}

// Execute implements event.Handler: a bound change of a member marks the
// constraint for repropagation.
func (h *Handler) Execute(ev *event.Event, cdata any) error {
	c := cdata.(*constraint.Cons)
	d := data(c)
	if v, ok := ev.Var().(*prob.Var); ok && !d.Contains(v.Index()) {
		return fmt.Errorf("setppc: <%s> caught event of non-member <%s>", c.Name(), v.Name())
	}
	d.dirty = true
	return nil
}

// Activate subscribes the constraint to bound changes of its members.
func (h *Handler) Activate(c *constraint.Cons) error {
	d := data(c)
	d.catchpos = make([]int, len(d.Vars))
	for i, v := range d.Vars {
		d.catchpos[i] = v.Filter().Catch(event.BoundChanged, h, c)
	}
	d.dirty = true
	return nil
}

// Deactivate drops the subscriptions taken in Activate.
func (h *Handler) Deactivate(c *constraint.Cons) error {
	d := data(c)
	for i, v := range d.Vars {
		v.Filter().Drop(event.BoundChanged, h, c, d.catchpos[i])
	}
	d.catchpos = nil
	return nil
}

// EnforceLP resolves relaxation violations by handing the violated row to the
// cut storage.
func (h *Handler) EnforceLP(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	res := constraint.Feasible
	for _, c := range conss {
		d := data(c)
		if d.satisfied(tol, d.sum(env.LPVal)) {
			c.IncAge(env.AgeLimit())
			continue
		}
		c.ResetAge()
		if err := env.AddCut(d.Row(c.Name(), tol)); err != nil {
			return constraint.Feasible, err
		}
		res = constraint.Separated
	}
	return res, nil
}

// EnforcePseudo enforces the pseudo solution: a violated constraint with an
// unfixed member is resolved by branching on it; with all members fixed the
// member sum is determined and the node is cut off.
func (h *Handler) EnforcePseudo(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	for _, c := range conss {
		d := data(c)
		if d.satisfied(tol, d.sum(env.LPVal)) {
			continue
		}
		c.ResetAge()
		for _, v := range d.Vars {
			if v.Fixed(tol) {
				continue
			}
			if err := env.BranchVar(v, (v.Lb()+v.Ub())/2); err != nil {
				return constraint.Feasible, err
			}
			return constraint.Branched, nil
		}
		return constraint.Cutoff, nil
	}
	return constraint.Feasible, nil
}

// Separate adds the rows violated by the relaxation solution as cuts.
func (h *Handler) Separate(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	res := constraint.DidNotFind
	for _, c := range conss {
		d := data(c)
		if d.satisfied(tol, d.sum(env.LPVal)) {
			continue
		}
		if err := env.AddCut(d.Row(c.Name(), tol)); err != nil {
			return res, err
		}
		c.ResetAge()
		res = constraint.Separated
	}
	return res, nil
}

// Propagate fixes members from the local domains:
//
//	partitioning/packing: a member at one fixes all others to zero; two
//	members at one cut the node off.
//	partitioning/covering: all members but one at zero fix the survivor to
//	one; all members at zero cut the node off.
func (h *Handler) Propagate(env constraint.Env, conss []*constraint.Cons) (constraint.Result, error) {
	res := constraint.DidNotRun
	for _, c := range conss {
		d := data(c)
		if !d.dirty {
			continue
		}
		d.dirty = false
		if res == constraint.DidNotRun {
			res = constraint.DidNotFind
		}

		ones, zeros := d.fixedCounts()

		if d.Kind != Covering && ones > 1 {
			return constraint.Cutoff, nil
		}
		if d.Kind != Packing && ones == 0 && zeros == len(d.Vars) {
			return constraint.Cutoff, nil
		}

		if d.Kind != Covering && ones == 1 {
			for _, v := range d.Vars {
				if v.Lb() > 0.5 || v.Ub() < 0.5 {
					continue
				}
				tightened, infeasible, err := env.TightenUb(v, 0)
				if err != nil {
					return res, err
				}
				if infeasible {
					return constraint.Cutoff, nil
				}
				if tightened {
					res = constraint.ReducedDom
				}
			}
		}
		if d.Kind != Packing && ones == 0 && zeros == len(d.Vars)-1 {
			for _, v := range d.Vars {
				if v.Ub() < 0.5 {
					continue
				}
				tightened, infeasible, err := env.TightenLb(v, 1)
				if err != nil {
					return res, err
				}
				if infeasible {
					return constraint.Cutoff, nil
				}
				if tightened {
					res = constraint.ReducedDom
				}
				break
			}
		}
	}
	return res, nil
}

// Check accepts vals iff every constraint's member sum satisfies its flavor.
func (h *Handler) Check(env constraint.Env, vals []float64, conss []*constraint.Cons) (constraint.Result, error) {
	tol := env.Tol()
	for _, c := range conss {
		d := data(c)
		s := d.sum(func(v *prob.Var) float64 { return vals[v.Index()] })
		if !d.satisfied(tol, s) {
			return constraint.Infeasible, nil
		}
	}
	return constraint.Feasible, nil
}

// Lock installs rounding locks per flavor: packing locks upward rounding,
// covering downward, partitioning both.
func (h *Handler) Lock(c *constraint.Cons, nlockspos, nlocksneg int) error {
	d := data(c)
	for _, v := range d.Vars {
		switch d.Kind {
		case Partitioning:
			v.AddLocks(nlockspos+nlocksneg, nlockspos+nlocksneg)
		case Packing:
			v.AddLocks(nlocksneg, nlockspos)
		case Covering:
			v.AddLocks(nlockspos, nlocksneg)
		}
	}
	return nil
}
