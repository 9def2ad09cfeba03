package tree

import "github.com/cipkit/cipkit/numerics"

func init() {
	RegisterSelector("hybrid", func(tol *numerics.Tolerances) Selector {
		return NewHybrid(tol, 8)
	})
}

// Hybrid orders the queue best-first but plunges: after processing a node it
// prefers one of that node's children for up to maxPlungeDepth consecutive
// levels before falling back to the globally best node. Plunging finds
// incumbents early the way depth-first does while the best-first order keeps
// the dual bound useful.
type Hybrid struct {
	tol            *numerics.Tolerances
	maxPlungeDepth int

	lastSelected *Node
	plungeStart  int
}

// NewHybrid creates a plunging best-first selector. maxPlungeDepth bounds the
// number of consecutive dives below the node that started the plunge.
func NewHybrid(tol *numerics.Tolerances, maxPlungeDepth int) *Hybrid {
	if maxPlungeDepth < 0 {
		maxPlungeDepth = 0
	}
	return &Hybrid{tol: tol, maxPlungeDepth: maxPlungeDepth, plungeStart: -1}
}

func (s *Hybrid) Name() string { return "hybrid" }

func (s *Hybrid) Compare(a, b *Node) int {
	if s.tol.IsLT(a.lowerBound, b.lowerBound) {
		return -1
	}
	if s.tol.IsGT(a.lowerBound, b.lowerBound) {
		return +1
	}
	switch {
	case a.id < b.id:
		return -1
	case a.id > b.id:
		return +1
	}
	return 0
}

func (s *Hybrid) Select(pq *NodePQ) *Node {
	if node := s.selectPlunge(pq); node != nil {
		pq.Remove(node)
		s.lastSelected = node
		return node
	}
	node := pq.RemoveBest()
	s.lastSelected = node
	if node != nil {
		s.plungeStart = node.depth
	}
	return node
}

// selectPlunge returns the best queued child of the previously selected node
// while the plunge window allows, nil otherwise.
func (s *Hybrid) selectPlunge(pq *NodePQ) *Node {
	if s.lastSelected == nil || s.plungeStart < 0 {
		return nil
	}
	if s.lastSelected.depth+1-s.plungeStart > s.maxPlungeDepth {
		return nil
	}
	var best *Node
	for _, node := range pq.slots {
		if node.parent != s.lastSelected {
			continue
		}
		if best == nil || s.Compare(node, best) < 0 {
			best = node
		}
	}
	return best
}

func (s *Hybrid) LowestBoundFirst() bool { return true }
