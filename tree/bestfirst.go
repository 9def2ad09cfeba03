package tree

import "github.com/cipkit/cipkit/numerics"

func init() {
	RegisterSelector("bfs", func(tol *numerics.Tolerances) Selector {
		return &BestFirst{tol: tol}
	})
}

// BestFirst selects the open node with the smallest lower bound, keeping the
// global dual bound moving. Ties go to the shallower node, then to the older
// one, so the order is deterministic for a fixed tree shape.
type BestFirst struct {
	tol *numerics.Tolerances
}

func (s *BestFirst) Name() string { return "bfs" }

func (s *BestFirst) Compare(a, b *Node) int {
	if s.tol.IsLT(a.lowerBound, b.lowerBound) {
		return -1
	}
	if s.tol.IsGT(a.lowerBound, b.lowerBound) {
		return +1
	}
	if a.depth != b.depth {
		if a.depth < b.depth {
			return -1
		}
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

func (s *BestFirst) Select(pq *NodePQ) *Node { return pq.RemoveBest() }

func (s *BestFirst) LowestBoundFirst() bool { return true }
