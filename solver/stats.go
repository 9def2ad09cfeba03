package solver

import (
	"time"

	"github.com/google/uuid"

	"github.com/cipkit/cipkit/event"
)

// Stats aggregates the counters of one search run.
type Stats struct {
	RunID uuid.UUID

	NNodes     uint64 // nodes taken into focus
	NLPs       uint64 // relaxation solves
	NCuts      uint64 // cuts added to the pool
	NSols      int    // improving solutions found
	MaxDepth   int
	NPropCalls uint64
	NSepaCalls uint64
	NEnfoCalls uint64

	// LowerboundSum is the lifetime sum of lower bounds of nodes inserted
	// into the open queue; divided by NNodes it estimates the average dual
	// bound of the explored tree.
	LowerboundSum float64

	Start   time.Time
	Elapsed time.Duration
}

func newStats() *Stats {
	return &Stats{RunID: uuid.New(), Start: time.Now()}
}

// AvgLowerbound returns the average dual bound of the processed nodes, or 0
// before the first node.
func (s *Stats) AvgLowerbound() float64 {
	if s.NNodes == 0 {
		return 0
	}
	return s.LowerboundSum / float64(s.NNodes)
}

// statsHandler subscribes to the global event filter and keeps the event
// counters; it doubles as a liveness check of the event plumbing.
type statsHandler struct {
	nFocused uint64
	nSols    int
}

func (h *statsHandler) Name() string { return "stats" }

func (h *statsHandler) Execute(ev *event.Event, _ any) error {
	switch {
	case ev.Kind()&event.NodeFocused != 0:
		h.nFocused++
	case ev.Kind()&event.SolFound != 0:
		h.nSols++
	}
	return nil
}
