// Package numerics supplies the floating point comparison predicates and
// array growth policy shared by every cipkit component.
//
// All comparisons are epsilon based: two values closer than Epsilon are
// considered equal, and feasibility checks use the coarser FeasTol. Values
// beyond Infinity are treated as unbounded.
package numerics

import (
	"fmt"
	"math"
)

// Tolerances bundles the numeric comparison thresholds. A single Tolerances
// value is created by the driver and passed by reference to the components
// that need it; it is not mutated once the search starts.
type Tolerances struct {
	Epsilon  float64 // absolute values smaller than this are considered zero
	FeasTol  float64 // feasibility tolerance for primal solutions
	Infinity float64 // values at or above this are considered infinite
}

// Default returns the tolerances used when the caller does not supply any.
func Default() *Tolerances {
	return &Tolerances{
		Epsilon:  1e-9,
		FeasTol:  1e-6,
		Infinity: 1e20,
	}
}

// Validate checks the internal consistency of the tolerances.
func (t *Tolerances) Validate() error {
	if t.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", t.Epsilon)
	}
	if t.FeasTol < t.Epsilon {
		return fmt.Errorf("feastol (%g) must not be smaller than epsilon (%g)", t.FeasTol, t.Epsilon)
	}
	if t.Infinity <= 1 {
		return fmt.Errorf("infinity threshold too small: %g", t.Infinity)
	}
	return nil
}

// IsEQ reports whether a and b are equal within epsilon.
func (t *Tolerances) IsEQ(a, b float64) bool { return math.Abs(a-b) <= t.Epsilon }

// IsLT reports whether a is more than epsilon smaller than b.
func (t *Tolerances) IsLT(a, b float64) bool { return a < b-t.Epsilon }

// IsLE reports whether a is not more than epsilon greater than b.
func (t *Tolerances) IsLE(a, b float64) bool { return a <= b+t.Epsilon }

// IsGT reports whether a is more than epsilon greater than b.
func (t *Tolerances) IsGT(a, b float64) bool { return a > b+t.Epsilon }

// IsGE reports whether a is not more than epsilon smaller than b.
func (t *Tolerances) IsGE(a, b float64) bool { return a >= b-t.Epsilon }

// IsZero reports whether v is within epsilon of zero.
func (t *Tolerances) IsZero(v float64) bool { return math.Abs(v) <= t.Epsilon }

// IsPos reports whether v is greater than epsilon.
func (t *Tolerances) IsPos(v float64) bool { return v > t.Epsilon }

// IsNeg reports whether v is smaller than -epsilon.
func (t *Tolerances) IsNeg(v float64) bool { return v < -t.Epsilon }

// IsInfinity reports whether v reaches the positive infinity threshold.
func (t *Tolerances) IsInfinity(v float64) bool { return v >= t.Infinity }

// IsNegInfinity reports whether v reaches the negative infinity threshold.
func (t *Tolerances) IsNegInfinity(v float64) bool { return v <= -t.Infinity }

// Floor rounds v down to the next integer, treating values within feastol of
// the next integer as that integer.
func (t *Tolerances) Floor(v float64) float64 { return math.Floor(v + t.FeasTol) }

// Ceil rounds v up to the next integer, treating values within feastol of the
// previous integer as that integer.
func (t *Tolerances) Ceil(v float64) float64 { return math.Ceil(v - t.FeasTol) }

// Frac returns the fractional part of v w.r.t. Floor.
func (t *Tolerances) Frac(v float64) float64 { return v - t.Floor(v) }

// IsFeasIntegral reports whether v is integral within feastol.
func (t *Tolerances) IsFeasIntegral(v float64) bool {
	return math.Abs(v-math.Round(v)) <= t.FeasTol
}

// IsFeasEQ reports whether a and b are equal within feastol.
func (t *Tolerances) IsFeasEQ(a, b float64) bool { return math.Abs(a-b) <= t.FeasTol }

// IsFeasLE reports whether a is not more than feastol greater than b.
func (t *Tolerances) IsFeasLE(a, b float64) bool { return a <= b+t.FeasTol }

// IsFeasGE reports whether a is not more than feastol smaller than b.
func (t *Tolerances) IsFeasGE(a, b float64) bool { return a >= b-t.FeasTol }
