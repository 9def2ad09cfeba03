package tree

import (
	"fmt"

	"github.com/cipkit/cipkit/numerics"
)

func pqParent(pos int) int { return (pos - 1) / 2 }
func pqLeft(pos int) int   { return 2*pos + 1 }
func pqRight(pos int) int  { return 2*pos + 2 }

// NodePQ is a binary heap of open leaf nodes, ordered by the active
// Selector's comparison function. Besides the heap itself it tracks the sum
// of the queued nodes' lower bounds (for average dual bound statistics) and a
// cached minimum lower bound with the number of nodes tied at it, so global
// dual bound queries are O(1) amortized instead of a full scan.
//
// The queue exclusively owns its nodes: inserting a node that is already
// queued or freed is a contract violation.
type NodePQ struct {
	tol  *numerics.Tolerances
	grow numerics.GrowCalc
	sel  Selector

	slots []*Node

	lowerboundSum float64
	lowerbound    float64 // minimal lower bound of queued nodes; valid iff nlowerbounds > 0
	nlowerbounds  int     // number of queued nodes tied at the minimum, 0 if the cache is invalid
}

// NewNodePQ creates an empty queue ordered by sel.
func NewNodePQ(tol *numerics.Tolerances, grow numerics.GrowCalc, sel Selector) *NodePQ {
	if sel == nil {
		panic("tree: nil selector")
	}
	return &NodePQ{tol: tol, grow: grow, sel: sel}
}

// Selector returns the active node selector.
func (pq *NodePQ) Selector() Selector { return pq.sel }

// SetSelector makes sel the active selector and rebuilds the heap so the
// heap-order invariant holds under the new comparison function.
func (pq *NodePQ) SetSelector(sel Selector) {
	if sel == nil {
		panic("tree: nil selector")
	}
	if sel == pq.sel {
		return
	}
	pq.sel = sel
	// bottom-up heapify under the new order
	for pos := len(pq.slots)/2 - 1; pos >= 0; pos-- {
		pq.siftDown(pos)
	}
}

func (pq *NodePQ) siftDown(pos int) {
	node := pq.slots[pos]
	for {
		child := pqLeft(pos)
		if child >= len(pq.slots) {
			break
		}
		if right := pqRight(pos); right < len(pq.slots) && pq.sel.Compare(pq.slots[right], pq.slots[child]) < 0 {
			child = right
		}
		if pq.sel.Compare(node, pq.slots[child]) <= 0 {
			break
		}
		pq.slots[pos] = pq.slots[child]
		pq.slots[pos].pqpos = pos
		pos = child
	}
	pq.slots[pos] = node
	node.pqpos = pos
}

// updateLowerbound folds node's bound into the minimum cache. It serves both
// the insert fast path and the full rescan, so near-tied bounds at the
// epsilon boundary see one consistent predicate.
func (pq *NodePQ) updateLowerbound(node *Node) {
	if pq.tol.IsLE(node.lowerBound, pq.lowerbound) {
		if pq.tol.IsEQ(node.lowerBound, pq.lowerbound) {
			pq.nlowerbounds++
		} else {
			pq.lowerbound = node.lowerBound
			pq.nlowerbounds = 1
		}
	}
}

// Insert adds node to the queue as a leaf and restores heap order by moving
// it towards the root as long as it is better than its parent.
func (pq *NodePQ) Insert(node *Node) {
	if node == nil {
		panic("tree: insert of nil node")
	}
	if node.Queued() {
		panic(fmt.Sprintf("tree: node %d is already queued", node.id))
	}
	if node.typ == Freed {
		panic(fmt.Sprintf("tree: insert of freed node %d", node.id))
	}
	node.typ = Leaf

	if len(pq.slots) == cap(pq.slots) {
		grown := make([]*Node, len(pq.slots), pq.grow.Grow(cap(pq.slots), len(pq.slots)+1))
		copy(grown, pq.slots)
		pq.slots = grown
	}

	pos := len(pq.slots)
	pq.slots = append(pq.slots, nil)
	pq.lowerboundSum += node.lowerBound
	for pos > 0 && pq.sel.Compare(node, pq.slots[pqParent(pos)]) < 0 {
		pq.slots[pos] = pq.slots[pqParent(pos)]
		pq.slots[pos].pqpos = pos
		pos = pqParent(pos)
	}
	pq.slots[pos] = node
	node.pqpos = pos

	// only a valid cache can absorb the new bound; an invalidated cache is
	// re-populated by the next Lowerbound query
	if pq.nlowerbounds > 0 {
		pq.updateLowerbound(node)
	}
}

// delPos removes the node at position rempos and reports whether the freed
// slot was refilled by its parent sliding down (in which case a backward
// pruning scan must re-examine the slot).
//
// The replacement (the former last element) might be better than the removed
// node's parent, so it is sifted up first; only if no upward move happened is
// it sifted down, preferring the better child, left before right on exact
// ties.
func (pq *NodePQ) delPos(rempos int) bool {
	if rempos < 0 || rempos >= len(pq.slots) {
		panic(fmt.Sprintf("tree: remove position %d out of range [0,%d)", rempos, len(pq.slots)))
	}

	removed := pq.slots[rempos]
	if pq.nlowerbounds > 0 && pq.tol.IsEQ(removed.lowerBound, pq.lowerbound) {
		pq.nlowerbounds--
		if pq.nlowerbounds == 0 {
			pq.lowerbound = pq.tol.Infinity
		}
	}
	pq.lowerboundSum -= removed.lowerBound
	removed.pqpos = -1

	last := pq.slots[len(pq.slots)-1]
	pq.slots[len(pq.slots)-1] = nil
	pq.slots = pq.slots[:len(pq.slots)-1]
	if last == removed {
		return false
	}

	freepos := rempos
	parentFellDown := false
	for freepos > 0 && pq.sel.Compare(last, pq.slots[pqParent(freepos)]) < 0 {
		parent := pqParent(freepos)
		pq.slots[freepos] = pq.slots[parent]
		pq.slots[freepos].pqpos = freepos
		freepos = parent
		parentFellDown = true
	}
	if !parentFellDown {
		// the last node was not better than the parent: move the better
		// child upwards until the last node fits
		for {
			child := pqLeft(freepos)
			if child >= len(pq.slots) {
				break
			}
			if right := pqRight(freepos); right < len(pq.slots) && pq.sel.Compare(pq.slots[right], pq.slots[child]) < 0 {
				child = right
			}
			if pq.sel.Compare(last, pq.slots[child]) <= 0 {
				break
			}
			pq.slots[freepos] = pq.slots[child]
			pq.slots[freepos].pqpos = freepos
			freepos = child
		}
	}
	pq.slots[freepos] = last
	last.pqpos = freepos

	return parentFellDown
}

// RemoveBest removes and returns the comparator-best node, or nil if the
// queue is empty.
func (pq *NodePQ) RemoveBest() *Node {
	if len(pq.slots) == 0 {
		return nil
	}
	best := pq.slots[0]
	pq.delPos(0)
	return best
}

// Remove removes the given queued node from an arbitrary position.
func (pq *NodePQ) Remove(node *Node) {
	if !node.Queued() || node.pqpos >= len(pq.slots) || pq.slots[node.pqpos] != node {
		panic(fmt.Sprintf("tree: remove of node %d that is not in this queue", node.id))
	}
	pq.delPos(node.pqpos)
}

// PeekBest returns the comparator-best node without removing it, or nil if
// the queue is empty.
func (pq *NodePQ) PeekBest() *Node {
	if len(pq.slots) == 0 {
		return nil
	}
	return pq.slots[0]
}

// Len returns the number of queued nodes.
func (pq *NodePQ) Len() int { return len(pq.slots) }

// LowerboundSum returns the sum of all queued nodes' lower bounds.
func (pq *NodePQ) LowerboundSum() float64 { return pq.lowerboundSum }

// Lowerbound returns the minimal lower bound over all queued nodes, the
// global dual bound contribution of the open tree. Returns the infinity
// threshold for an empty queue.
//
// When the active selector sorts by lower bound as primal criterion the best
// node's bound answers the query in O(1); otherwise the cached minimum is
// used, re-populated by a full rescan whenever the tie count dropped to zero.
func (pq *NodePQ) Lowerbound() float64 {
	if pq.sel.LowestBoundFirst() {
		if len(pq.slots) == 0 {
			return pq.tol.Infinity
		}
		return pq.slots[0].lowerBound
	}
	if len(pq.slots) == 0 {
		return pq.tol.Infinity
	}
	if pq.nlowerbounds == 0 {
		pq.lowerbound = pq.tol.Infinity
		for _, node := range pq.slots {
			pq.updateLowerbound(node)
		}
	}
	return pq.lowerbound
}

// Bound removes every queued node whose lower bound is not below upperbound
// (within epsilon) and returns the removed nodes for the caller to free.
//
// The scan runs from the last slot backward: a slot without reachable
// children is safe to test and remove without invalidating earlier positions.
// When a removal made the parent slide down into the examined slot, the same
// slot holds a not-yet-visited node and is re-examined.
func (pq *NodePQ) Bound(upperbound float64) []*Node {
	var pruned []*Node
	pos := len(pq.slots) - 1
	for pos >= 0 {
		node := pq.slots[pos]
		if pq.tol.IsGE(node.lowerBound, upperbound) {
			parentFellDown := pq.delPos(pos)
			pruned = append(pruned, node)
			if !parentFellDown {
				pos--
			}
			if pos >= len(pq.slots) {
				pos = len(pq.slots) - 1
			}
		} else {
			pos--
		}
	}
	return pruned
}
