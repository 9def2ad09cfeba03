package tree

import (
	"fmt"
	"sync"

	"github.com/cipkit/cipkit/numerics"
)

// Selector is a node selection strategy: a total order on open nodes (used as
// the priority queue's comparison function) plus the tree-traversal rule
// picking the next node to process.
//
// Compare must be antisymmetric and transitive; it returns a negative value
// if a should be processed before b, positive for the converse, and zero if
// the order does not care. Select removes and returns the chosen node from
// the queue, or nil if the queue is empty.
type Selector interface {
	Name() string
	Compare(a, b *Node) int
	Select(pq *NodePQ) *Node

	// LowestBoundFirst declares that Compare sorts the minimal-lower-bound
	// node to the front, enabling the O(1) dual bound fast path.
	LowestBoundFirst() bool
}

var (
	selRegistry  = make(map[string]func(tol *numerics.Tolerances) Selector)
	selRegistryM sync.RWMutex
)

// RegisterSelector registers a selector constructor under its name. Called
// from init functions of selector implementations; registering the same name
// twice is a contract violation.
func RegisterSelector(name string, mk func(tol *numerics.Tolerances) Selector) {
	selRegistryM.Lock()
	defer selRegistryM.Unlock()
	if _, ok := selRegistry[name]; ok {
		panic(fmt.Sprintf("tree: selector %q registered twice", name))
	}
	selRegistry[name] = mk
}

// NewSelector instantiates the registered selector with the given name.
func NewSelector(name string, tol *numerics.Tolerances) (Selector, error) {
	selRegistryM.RLock()
	defer selRegistryM.RUnlock()
	mk, ok := selRegistry[name]
	if !ok {
		return nil, fmt.Errorf("tree: unknown selector %q", name)
	}
	return mk(tol), nil
}

// Selectors returns the names of all registered selectors.
func Selectors() []string {
	selRegistryM.RLock()
	defer selRegistryM.RUnlock()
	names := make([]string, 0, len(selRegistry))
	for name := range selRegistry {
		names = append(names, name)
	}
	return names
}
