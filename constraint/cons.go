package constraint

import "fmt"

// ConsState is the lifecycle state of a constraint instance. Valid
// transitions:
//
//	Inactive -> Enabled          (Activate, entering the node's domain scope)
//	Enabled  <-> Disabled        (Disable/Enable, e.g. proven redundant)
//	Enabled|Disabled -> Inactive (Deactivate, leaving scope)
//	Inactive -> Deleted          (Delete)
//
// Any other transition is a contract violation.
type ConsState uint8

const (
	// ConsInactive: created or deactivated, outside any active scope.
	ConsInactive ConsState = iota
	// ConsEnabled: active and participating in separation/enforcement.
	ConsEnabled
	// ConsDisabled: active but temporarily excluded.
	ConsDisabled
	// ConsDeleted: released; terminal.
	ConsDeleted
)

func (s ConsState) String() string {
	switch s {
	case ConsInactive:
		return "inactive"
	case ConsEnabled:
		return "enabled"
	case ConsDisabled:
		return "disabled"
	case ConsDeleted:
		return "deleted"
	}
	return fmt.Sprintf("consstate(%d)", uint8(s))
}

// Cons is a single constraint instance owned by a handler. The handler keeps
// its domain data behind the opaque Data field.
type Cons struct {
	name    string
	handler Handler
	Data    any

	state ConsState
	age   float64

	// flag set: which dispatch stages consider this constraint
	check     bool
	enforce   bool
	separate  bool
	propagate bool
}

// Name returns the constraint's name.
func (c *Cons) Name() string { return c.name }

// Handler returns the owning handler.
func (c *Cons) Handler() Handler { return c.handler }

// State returns the current lifecycle state.
func (c *Cons) State() ConsState { return c.state }

// Enabled reports whether the constraint participates in separation and
// enforcement.
func (c *Cons) Enabled() bool { return c.state == ConsEnabled }

// Activate moves the constraint into the active scope and enables it,
// notifying the handler's Activator capability.
func (c *Cons) Activate() error {
	if c.state != ConsInactive {
		panic(fmt.Sprintf("constraint: activate of <%s> in state %s", c.name, c.state))
	}
	c.state = ConsEnabled
	if act, ok := c.handler.(Activator); ok {
		if err := act.Activate(c); err != nil {
			return fmt.Errorf("activate <%s>: %w", c.name, err)
		}
	}
	return nil
}

// Deactivate moves the constraint out of the active scope, notifying the
// handler's Deactivator capability.
func (c *Cons) Deactivate() error {
	if c.state != ConsEnabled && c.state != ConsDisabled {
		panic(fmt.Sprintf("constraint: deactivate of <%s> in state %s", c.name, c.state))
	}
	c.state = ConsInactive
	if deact, ok := c.handler.(Deactivator); ok {
		if err := deact.Deactivate(c); err != nil {
			return fmt.Errorf("deactivate <%s>: %w", c.name, err)
		}
	}
	return nil
}

// Disable temporarily excludes the active constraint from separation and
// enforcement.
func (c *Cons) Disable() {
	if c.state != ConsEnabled {
		panic(fmt.Sprintf("constraint: disable of <%s> in state %s", c.name, c.state))
	}
	c.state = ConsDisabled
}

// Enable re-includes a disabled constraint.
func (c *Cons) Enable() {
	if c.state != ConsDisabled {
		panic(fmt.Sprintf("constraint: enable of <%s> in state %s", c.name, c.state))
	}
	c.state = ConsEnabled
}

// Age returns the number of consecutive dispatch rounds in which the
// constraint was not helpful.
func (c *Cons) Age() float64 { return c.age }

// IncAge ages the constraint; once the age passes agelimit (if positive) the
// constraint is disabled as obsolete.
func (c *Cons) IncAge(agelimit float64) {
	c.age++
	if agelimit > 0 && c.age > agelimit && c.state == ConsEnabled {
		c.Disable()
	}
}

// ResetAge marks the constraint as useful again, re-enabling it if aging
// disabled it.
func (c *Cons) ResetAge() {
	c.age = 0
	if c.state == ConsDisabled {
		c.Enable()
	}
}

func (c *Cons) delete() {
	if c.state != ConsInactive {
		panic(fmt.Sprintf("constraint: delete of <%s> in state %s", c.name, c.state))
	}
	c.state = ConsDeleted
	c.Data = nil
}
