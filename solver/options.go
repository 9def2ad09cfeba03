package solver

import (
	"fmt"
	"time"

	"github.com/cipkit/cipkit/lp"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/tree"
)

// Option allows tweaking the solver configuration.
type Option func(*config) error

type config struct {
	tol      *numerics.Tolerances
	selName  string
	lpsolver lp.Solver

	nodeLimit  uint64
	timeLimit  time.Duration
	gapLimit   float64
	solLimit   int
	sepaRounds int
	ageLimit   float64
}

func defaultConfig() config {
	return config{
		tol:        numerics.Default(),
		selName:    "bfs",
		nodeLimit:  0, // unlimited
		timeLimit:  0,
		gapLimit:   0,
		solLimit:   0,
		sepaRounds: 10,
		ageLimit:   20,
	}
}

// WithTolerances overrides the numeric tolerances.
func WithTolerances(tol *numerics.Tolerances) Option {
	return func(c *config) error {
		if err := tol.Validate(); err != nil {
			return err
		}
		c.tol = tol
		return nil
	}
}

// WithSelector picks the node selection strategy by its registered name.
func WithSelector(name string) Option {
	return func(c *config) error {
		c.selName = name
		return nil
	}
}

// WithLPSolver sets the relaxation backend. Without it the trivial bound
// relaxer is used and feasibility rests entirely on constraint enforcement.
func WithLPSolver(s lp.Solver) Option {
	return func(c *config) error {
		if s == nil {
			return fmt.Errorf("solver: nil LP solver")
		}
		c.lpsolver = s
		return nil
	}
}

// WithNodeLimit stops the search after processing n nodes (0 = unlimited).
func WithNodeLimit(n uint64) Option {
	return func(c *config) error {
		c.nodeLimit = n
		return nil
	}
}

// WithTimeLimit stops the search after d (0 = unlimited).
func WithTimeLimit(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return fmt.Errorf("solver: negative time limit %s", d)
		}
		c.timeLimit = d
		return nil
	}
}

// WithGapLimit stops the search once the relative primal-dual gap drops to g
// (0 = solve to optimality).
func WithGapLimit(g float64) Option {
	return func(c *config) error {
		if g < 0 {
			return fmt.Errorf("solver: negative gap limit %g", g)
		}
		c.gapLimit = g
		return nil
	}
}

// WithSolLimit stops the search after n improving solutions (0 = unlimited).
func WithSolLimit(n int) Option {
	return func(c *config) error {
		c.solLimit = n
		return nil
	}
}

// WithSeparationRounds caps the separation passes per node.
func WithSeparationRounds(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("solver: negative separation round limit %d", n)
		}
		c.sepaRounds = n
		return nil
	}
}

// WithAgeLimit sets the constraint age at which unhelpful constraints are
// disabled (0 = never disable).
func WithAgeLimit(a float64) Option {
	return func(c *config) error {
		c.ageLimit = a
		return nil
	}
}

func (c *config) selector() (tree.Selector, error) {
	return tree.NewSelector(c.selName, c.tol)
}
