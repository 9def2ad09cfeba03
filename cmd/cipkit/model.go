package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/cipkit/cipkit/constraint"
	"github.com/cipkit/cipkit/constraint/integral"
	"github.com/cipkit/cipkit/constraint/linear"
	"github.com/cipkit/cipkit/constraint/setppc"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/prob"
	"github.com/cipkit/cipkit/solver"
)

// Model is the TOML shape of a problem file.
type Model struct {
	Name        string       `toml:"name"`
	Sense       string       `toml:"sense"` // "minimize" (default) or "maximize"
	Variables   []ModelVar   `toml:"variables"`
	Constraints []ModelConss `toml:"constraints"`
}

// ModelVar declares one variable.
type ModelVar struct {
	Name     string   `toml:"name"`
	Lb       *float64 `toml:"lb"` // nil means -infinity
	Ub       *float64 `toml:"ub"` // nil means +infinity
	Obj      float64  `toml:"obj"`
	Integral bool     `toml:"integral"`
}

// ModelConss declares one constraint. Type is "linear", "partitioning",
// "packing" or "covering"; Coefs, Lhs and Rhs apply to linear constraints
// only.
type ModelConss struct {
	Type  string    `toml:"type"`
	Name  string    `toml:"name"`
	Vars  []string  `toml:"vars"`
	Coefs []float64 `toml:"coefs"`
	Lhs   *float64  `toml:"lhs"` // nil means -infinity
	Rhs   *float64  `toml:"rhs"` // nil means +infinity
}

// LoadModel parses a TOML problem file.
func LoadModel(path string) (*Model, error) {
	var m Model
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = path
	}
	switch m.Sense {
	case "", "minimize", "maximize":
	default:
		return nil, fmt.Errorf("%s: unknown sense %q", path, m.Sense)
	}
	if len(m.Variables) == 0 {
		return nil, fmt.Errorf("%s: no variables", path)
	}
	return &m, nil
}

// maximizing reports whether the model's objective is stated as maximization.
// The solver minimizes; a maximizing model is loaded with negated objective
// coefficients and its objective value negated back on report.
func (m *Model) maximizing() bool { return m.Sense == "maximize" }

// Build instantiates the model: problem, handler registry and solver.
func (m *Model) Build(tol *numerics.Tolerances, opts ...Option) (*solver.Solver, error) {
	reg := constraint.NewRegistry()
	if err := reg.Register(integral.New(), integral.Props()); err != nil {
		return nil, err
	}
	if err := reg.Register(setppc.New(), setppc.Props()); err != nil {
		return nil, err
	}
	if err := reg.Register(linear.New(tol), linear.Props()); err != nil {
		return nil, err
	}

	p := prob.New(m.Name, prob.Minimize)
	sol, err := solver.New(p, reg, append([]solver.Option{solver.WithTolerances(tol)}, solverOpts(opts)...)...)
	if err != nil {
		return nil, err
	}

	sign := 1.0
	if m.maximizing() {
		sign = -1
	}
	byName := make(map[string]*prob.Var, len(m.Variables))
	for _, mv := range m.Variables {
		lb, ub := -tol.Infinity, tol.Infinity
		if mv.Lb != nil {
			lb = *mv.Lb
		}
		if mv.Ub != nil {
			ub = *mv.Ub
		}
		v, err := p.AddVar(tol, sol.Queue(), mv.Name, lb, ub, sign*mv.Obj, mv.Integral)
		if err != nil {
			return nil, err
		}
		if _, dup := byName[mv.Name]; dup {
			return nil, fmt.Errorf("duplicate variable <%s>", mv.Name)
		}
		byName[mv.Name] = v
	}

	for i, mc := range m.Constraints {
		name := mc.Name
		if name == "" {
			name = fmt.Sprintf("c%d", i+1)
		}
		vars := make([]*prob.Var, len(mc.Vars))
		for j, vn := range mc.Vars {
			v, ok := byName[vn]
			if !ok {
				return nil, fmt.Errorf("constraint <%s> references unknown variable <%s>", name, vn)
			}
			vars[j] = v
		}

		switch mc.Type {
		case "linear":
			if len(mc.Coefs) != len(vars) {
				return nil, fmt.Errorf("constraint <%s> has %d coefficients for %d variables", name, len(mc.Coefs), len(vars))
			}
			lhs, rhs := -tol.Infinity, tol.Infinity
			if mc.Lhs != nil {
				lhs = *mc.Lhs
			}
			if mc.Rhs != nil {
				rhs = *mc.Rhs
			}
			d := &linear.Data{Vars: vars, Coefs: mc.Coefs, Lhs: lhs, Rhs: rhs}
			if _, err := reg.AddCons("linear", name, d); err != nil {
				return nil, err
			}
		case "partitioning", "packing", "covering":
			kind := setppc.Partitioning
			switch mc.Type {
			case "packing":
				kind = setppc.Packing
			case "covering":
				kind = setppc.Covering
			}
			d, err := setppc.NewData(kind, vars)
			if err != nil {
				return nil, fmt.Errorf("constraint <%s>: %w", name, err)
			}
			if _, err := reg.AddCons("setppc", name, d); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("constraint <%s> has unknown type %q", name, mc.Type)
		}
	}
	return sol, nil
}

// Option configures instance building from the CLI flags.
type Option func(*buildOpts)

type buildOpts struct {
	solverOpts []solver.Option
}

func withSolverOptions(opts ...solver.Option) Option {
	return func(b *buildOpts) { b.solverOpts = append(b.solverOpts, opts...) }
}

func solverOpts(opts []Option) []solver.Option {
	var b buildOpts
	for _, o := range opts {
		o(&b)
	}
	return b.solverOpts
}
