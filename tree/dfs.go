package tree

import "github.com/cipkit/cipkit/numerics"

func init() {
	RegisterSelector("dfs", func(tol *numerics.Tolerances) Selector {
		return &DepthFirst{}
	})
}

// DepthFirst dives: deeper nodes are processed first, and among nodes of the
// same depth the most recently created one wins, giving a stack discipline on
// top of the shared priority queue. Memory-friendly, weak dual bound.
type DepthFirst struct{}

func (s *DepthFirst) Name() string { return "dfs" }

func (s *DepthFirst) Compare(a, b *Node) int {
	if a.depth != b.depth {
		if a.depth > b.depth {
			return -1
		}
		return +1
	}
	switch {
	case a.id > b.id:
		return -1
	case a.id < b.id:
		return +1
	}
	return 0
}

func (s *DepthFirst) Select(pq *NodePQ) *Node { return pq.RemoveBest() }

func (s *DepthFirst) LowestBoundFirst() bool { return false }
