package numerics

// GrowCalc computes amortized geometric growth sizes for dynamically sized
// arrays. The zero value is not usable; use DefaultGrow or fill both fields.
type GrowCalc struct {
	Fac  float64 // growth factor, > 1
	Init int     // initial size, > 0
}

// DefaultGrow is the growth policy used for the node queue and event filter
// storage when the caller does not override it.
func DefaultGrow() GrowCalc {
	return GrowCalc{Fac: 2.0, Init: 4}
}

// Grow returns the capacity to allocate so that at least min entries fit,
// starting from the current capacity cur.
func (g GrowCalc) Grow(cur, min int) int {
	if min <= cur {
		return cur
	}
	size := cur
	if size < g.Init {
		size = g.Init
	}
	for size < min {
		size = int(float64(size)*g.Fac) + 1
	}
	return size
}
