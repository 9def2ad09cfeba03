// Package event implements the publish/subscribe mechanism that notifies
// constraint handlers and bookkeeping components of problem state changes.
//
// Events are created at the point of a state change, dispatched synchronously
// through a Filter (or batched in a Queue during bulk domain changes) and then
// dropped; they are never persisted.
package event

import "fmt"

// Type is a bitmask of event kinds. A filter entry subscribes to any union of
// types; an event always carries exactly one atomic type.
type Type uint32

const (
	VarAdded Type = 1 << iota
	VarDeleted
	VarFixed
	ObjChanged
	LbTightened
	LbRelaxed
	UbTightened
	UbRelaxed
	ImplAdded
	NodeFocused
	SolFound

	LbChanged      = LbTightened | LbRelaxed
	UbChanged      = UbTightened | UbRelaxed
	BoundChanged   = LbChanged | UbChanged
	BoundTightened = LbTightened | UbTightened
	BoundRelaxed   = LbRelaxed | UbRelaxed
)

func (t Type) String() string {
	switch t {
	case VarAdded:
		return "varadded"
	case VarDeleted:
		return "vardeleted"
	case VarFixed:
		return "varfixed"
	case ObjChanged:
		return "objchanged"
	case LbTightened:
		return "lbtightened"
	case LbRelaxed:
		return "lbrelaxed"
	case UbTightened:
		return "ubtightened"
	case UbRelaxed:
		return "ubrelaxed"
	case ImplAdded:
		return "impladded"
	case NodeFocused:
		return "nodefocused"
	case SolFound:
		return "solfound"
	}
	return fmt.Sprintf("type(%#x)", uint32(t))
}

// Variable is the minimal view of a problem variable an event carries; it is
// satisfied by prob.Var.
type Variable interface {
	Index() int
	Name() string
}

// Event is an immutable record of a single state change. Payload fields not
// applicable to the event's type are zero.
type Event struct {
	typ      Type
	variable Variable
	oldVal   float64 // old bound or old objective coefficient
	newVal   float64 // new bound or new objective coefficient
	sol      any     // solution payload for SolFound
	node     any     // node payload for NodeFocused
}

// Kind returns the atomic event type.
func (e *Event) Kind() Type { return e.typ }

// Var returns the variable the event refers to, or nil.
func (e *Event) Var() Variable { return e.variable }

// OldValue returns the bound or objective value before the change.
func (e *Event) OldValue() float64 { return e.oldVal }

// NewValue returns the bound or objective value after the change.
func (e *Event) NewValue() float64 { return e.newVal }

// Sol returns the solution payload of a SolFound event.
func (e *Event) Sol() any { return e.sol }

// Node returns the node payload of a NodeFocused event.
func (e *Event) Node() any { return e.node }

// NewVarAdded creates an event for the addition of a variable to the problem.
func NewVarAdded(v Variable) *Event { return &Event{typ: VarAdded, variable: v} }

// NewVarDeleted creates an event for the deletion of a variable.
func NewVarDeleted(v Variable) *Event { return &Event{typ: VarDeleted, variable: v} }

// NewVarFixed creates an event for the fixing of a variable.
func NewVarFixed(v Variable) *Event { return &Event{typ: VarFixed, variable: v} }

// NewObjChanged creates an event for a change of a variable's objective
// coefficient.
func NewObjChanged(v Variable, oldobj, newobj float64) *Event {
	return &Event{typ: ObjChanged, variable: v, oldVal: oldobj, newVal: newobj}
}

// NewLbChanged creates an event for a change of a variable's lower bound; the
// tightened/relaxed tag follows from the direction of the change.
func NewLbChanged(v Variable, oldbound, newbound float64) *Event {
	typ := LbTightened
	if newbound < oldbound {
		typ = LbRelaxed
	}
	return &Event{typ: typ, variable: v, oldVal: oldbound, newVal: newbound}
}

// NewUbChanged creates an event for a change of a variable's upper bound; the
// tightened/relaxed tag follows from the direction of the change.
func NewUbChanged(v Variable, oldbound, newbound float64) *Event {
	typ := UbTightened
	if newbound > oldbound {
		typ = UbRelaxed
	}
	return &Event{typ: typ, variable: v, oldVal: oldbound, newVal: newbound}
}

// NewImplAdded creates an event for an addition to a variable's implication
// information.
func NewImplAdded(v Variable) *Event { return &Event{typ: ImplAdded, variable: v} }

// NewNodeFocused creates an event announcing that a search node became the
// focus node.
func NewNodeFocused(node any) *Event { return &Event{typ: NodeFocused, node: node} }

// NewSolFound creates an event announcing a new incumbent solution.
func NewSolFound(sol any) *Event { return &Event{typ: SolFound, sol: sol} }

// Handler receives events matching its filter registration. Execute is called
// synchronously; data is the opaque payload given at registration.
type Handler interface {
	Name() string
	Execute(ev *Event, data any) error
}
