// Package cipkit provides a branch-and-bound framework for solving constraint
// integer programs (mixed-integer linear optimization).
//
// cipkit is built around three cooperating pieces:
//   - a search tree with a node priority queue driven by pluggable node
//     selectors (package tree),
//   - a generic constraint handler protocol covering separation, enforcement
//     and feasibility checking (package constraint),
//   - an event system propagating domain changes to interested handlers
//     (package event).
//
// The LP relaxation is an external collaborator behind the lp.Solver
// interface; cipkit ships a trivial pseudo-solution relaxer for tests and
// bound-only search.
//
// See package solver for the search driver tying everything together.
package cipkit

import (
	"github.com/blang/semver/v4"
)

// Version of the cipkit library.
var Version = semver.MustParse("0.1.0")
