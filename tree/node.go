// Package tree implements the branch-and-bound search tree: nodes, the node
// priority queue and the pluggable node selection strategies that drive the
// order in which open nodes are processed.
package tree

import (
	"fmt"

	"github.com/cipkit/cipkit/prob"
)

// NodeType describes a node's role in the search tree.
type NodeType uint8

const (
	// Leaf nodes sit in the priority queue waiting to be processed.
	Leaf NodeType = iota
	// Sibling nodes are children of the focus node's parent.
	Sibling
	// Child nodes were just created by branching on the focus node.
	Child
	// Junction nodes are fully processed interior nodes kept for their
	// domain-change records.
	Junction
	// Probing nodes belong to a temporary dive and never enter the queue.
	Probing
	// Refocused nodes are former junctions re-activated on the focus path.
	Refocused
	// Freed nodes have been released; using one is a contract violation.
	Freed
)

func (t NodeType) String() string {
	switch t {
	case Leaf:
		return "leaf"
	case Sibling:
		return "sibling"
	case Child:
		return "child"
	case Junction:
		return "junction"
	case Probing:
		return "probing"
	case Refocused:
		return "refocused"
	case Freed:
		return "freed"
	}
	return fmt.Sprintf("nodetype(%d)", uint8(t))
}

// Node is a vertex of the branch-and-bound tree: a sub-problem defined by the
// bound changes recorded along the path from the root.
//
// A node lives in exactly one place at a time: the priority queue (as a
// leaf), the active path of the search driver, or it is freed. The queue
// exclusively owns queued nodes.
type Node struct {
	id         uint64
	typ        NodeType
	depth      int
	lowerBound float64
	parent     *Node
	domchg     []prob.BoundChange

	pqpos int // slot in the priority queue, -1 while not queued
}

// NewRoot creates the root node of a search tree with the given initial dual
// bound.
func NewRoot(id uint64, lowerbound float64) *Node {
	return &Node{id: id, typ: Child, lowerBound: lowerbound, pqpos: -1}
}

// NewChild creates a child of n created by branching. The child inherits the
// parent's lower bound; use UpdateLowerbound to raise it.
func (n *Node) NewChild(id uint64, domchg ...prob.BoundChange) *Node {
	if n.typ == Freed {
		panic("tree: creating child of freed node")
	}
	return &Node{
		id:         id,
		typ:        Child,
		depth:      n.depth + 1,
		lowerBound: n.lowerBound,
		parent:     n,
		domchg:     domchg,
		pqpos:      -1,
	}
}

// ID returns the node's unique identity.
func (n *Node) ID() uint64 { return n.id }

// Type returns the node's current type.
func (n *Node) Type() NodeType { return n.typ }

// Depth returns the node's depth in the tree; the root has depth 0.
func (n *Node) Depth() int { return n.depth }

// Lowerbound returns the proven lower bound of the node's subtree.
func (n *Node) Lowerbound() float64 { return n.lowerBound }

// Parent returns the node's parent, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// DomChg returns the bound changes that distinguish the node from its parent.
// They are applied when the node becomes active and undone when the focus
// leaves its subtree.
func (n *Node) DomChg() []prob.BoundChange { return n.domchg }

// AddBoundChange records an additional bound change at the node (branching
// decision or propagation result found while the node is in focus).
func (n *Node) AddBoundChange(bc prob.BoundChange) {
	if n.typ == Freed {
		panic("tree: bound change on freed node")
	}
	n.domchg = append(n.domchg, bc)
}

// UpdateLowerbound raises the node's lower bound to newbound if it improves
// it. Bounds only ever move up along a root-to-leaf path; the parent relation
// guarantees children start at their parent's bound.
func (n *Node) UpdateLowerbound(newbound float64) {
	if newbound > n.lowerBound {
		n.lowerBound = newbound
	}
}

// Queued reports whether the node currently sits in a priority queue.
func (n *Node) Queued() bool { return n.pqpos >= 0 }

// SetType moves the node into a new lifecycle role. Transitions out of Freed
// are contract violations.
func (n *Node) SetType(typ NodeType) {
	if n.typ == Freed {
		panic(fmt.Sprintf("tree: type change on freed node %d", n.id))
	}
	n.typ = typ
}

// Free releases the node's domain-change record and marks it freed. Freeing a
// queued node is a contract violation; remove it from the queue first.
func (n *Node) Free() {
	if n.typ == Freed {
		panic(fmt.Sprintf("tree: double free of node %d", n.id))
	}
	if n.Queued() {
		panic(fmt.Sprintf("tree: freeing queued node %d", n.id))
	}
	n.typ = Freed
	n.domchg = nil
	n.parent = nil
}
