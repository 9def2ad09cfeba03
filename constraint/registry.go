package constraint

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cipkit/cipkit/logger"
)

type entry struct {
	handler Handler
	props   Props
	order   int // registration order, breaks priority ties
	conss   []*Cons
}

// enabled returns the entry's enabled constraint instances.
func (e *entry) enabled() []*Cons {
	out := make([]*Cons, 0, len(e.conss))
	for _, c := range e.conss {
		if c.Enabled() {
			out = append(out, c)
		}
	}
	return out
}

// Registry holds the registered constraint handlers together with their
// constraint instances and drives the dispatch rounds in priority order.
// Priority ties are broken by registration order, so dispatch is stable.
type Registry struct {
	entries []*entry
	byName  map[string]*entry

	// priority-ordered views, rebuilt on registration
	sepaOrder  []*entry
	enfoOrder  []*entry
	checkOrder []*entry

	log zerolog.Logger
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		log:    logger.Logger().With().Str("component", "conshdlr").Logger(),
	}
}

// Register adds a handler with its dispatch parameters. Registering two
// handlers under one name is an error.
func (r *Registry) Register(h Handler, props Props) error {
	if h == nil {
		panic("constraint: register of nil handler")
	}
	if _, ok := r.byName[h.Name()]; ok {
		return fmt.Errorf("constraint: handler <%s> already registered", h.Name())
	}
	e := &entry{handler: h, props: props, order: len(r.entries)}
	r.entries = append(r.entries, e)
	r.byName[h.Name()] = e

	r.sepaOrder = sortedView(r.entries, func(e *entry) int { return e.props.SepaPriority })
	r.enfoOrder = sortedView(r.entries, func(e *entry) int { return e.props.EnfoPriority })
	r.checkOrder = sortedView(r.entries, func(e *entry) int { return e.props.CheckPriority })

	r.log.Debug().Str("handler", h.Name()).
		Int("sepapriority", props.SepaPriority).
		Int("enfopriority", props.EnfoPriority).
		Msg("registered constraint handler")
	return nil
}

func sortedView(entries []*entry, prio func(*entry) int) []*entry {
	view := make([]*entry, len(entries))
	copy(view, entries)
	sort.SliceStable(view, func(i, j int) bool {
		if prio(view[i]) != prio(view[j]) {
			return prio(view[i]) > prio(view[j])
		}
		return view[i].order < view[j].order
	})
	return view
}

// Handler returns the registered handler with the given name, or nil.
func (r *Registry) Handler(name string) Handler {
	if e, ok := r.byName[name]; ok {
		return e.handler
	}
	return nil
}

// Handlers returns all handlers in registration order.
func (r *Registry) Handlers() []Handler {
	out := make([]Handler, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.handler
	}
	return out
}

// AddCons creates a constraint instance for the named handler. The instance
// starts inactive; the driver activates it when it enters scope. The
// handler's Lock callback is invoked to install rounding locks.
func (r *Registry) AddCons(handlerName, consName string, data any) (*Cons, error) {
	e, ok := r.byName[handlerName]
	if !ok {
		return nil, fmt.Errorf("constraint: no handler <%s> for constraint <%s>", handlerName, consName)
	}
	c := &Cons{
		name:      consName,
		handler:   e.handler,
		Data:      data,
		check:     true,
		enforce:   true,
		separate:  true,
		propagate: true,
	}
	e.conss = append(e.conss, c)
	if err := e.handler.Lock(c, 1, 0); err != nil {
		return nil, fmt.Errorf("constraint: lock <%s>: %w", consName, err)
	}
	return c, nil
}

// DelCons deletes an inactive constraint instance, releasing its locks.
func (r *Registry) DelCons(c *Cons) error {
	e, ok := r.byName[c.handler.Name()]
	if !ok {
		panic(fmt.Sprintf("constraint: delete of <%s> whose handler is not registered", c.name))
	}
	if err := e.handler.Lock(c, -1, 0); err != nil {
		return fmt.Errorf("constraint: unlock <%s>: %w", c.name, err)
	}
	c.delete()
	for i, cc := range e.conss {
		if cc == c {
			e.conss = append(e.conss[:i], e.conss[i+1:]...)
			break
		}
	}
	return nil
}

// Conss returns the constraint instances of the named handler.
func (r *Registry) Conss(handlerName string) []*Cons {
	if e, ok := r.byName[handlerName]; ok {
		return e.conss
	}
	return nil
}

// ActivateAll activates every registered constraint instance; called when the
// root node comes into focus.
func (r *Registry) ActivateAll() error {
	for _, e := range r.entries {
		for _, c := range e.conss {
			if c.State() == ConsInactive {
				if err := c.Activate(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DeactivateAll deactivates every active constraint instance; called when the
// search ends.
func (r *Registry) DeactivateAll() error {
	for _, e := range r.entries {
		for _, c := range e.conss {
			if c.State() == ConsEnabled || c.State() == ConsDisabled {
				if err := c.Deactivate(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// skip reports whether the entry takes part in a round at all.
func (e *entry) skip() bool {
	return e.props.NeedsCons && len(e.enabled()) == 0
}

// Separate runs one separation round: every capable handler in separation
// priority order, honoring its frequency against the node depth. The round
// stops as soon as a handler reports a cutoff; otherwise cut and domain
// reduction findings accumulate.
func (r *Registry) Separate(env Env, depth int) (Result, error) {
	res := DidNotRun
	for _, e := range r.sepaOrder {
		sep, ok := e.handler.(Separator)
		if !ok {
			continue
		}
		if !runsAtDepth(e.props.SepaFreq, depth) || e.skip() {
			continue
		}
		hres, err := sep.Separate(env, e.enabled())
		if err != nil {
			return res, fmt.Errorf("separation of <%s>: %w", e.handler.Name(), err)
		}
		switch hres {
		case Cutoff:
			return Cutoff, nil
		case Separated:
			res = Separated
		case ReducedDom:
			if res != Separated {
				res = ReducedDom
			}
		case DidNotFind:
			if res == DidNotRun {
				res = DidNotFind
			}
		case DidNotRun, Feasible:
			// nothing to record
		default:
			panic(fmt.Sprintf("constraint: invalid separation result %s from <%s>", hres, e.handler.Name()))
		}
	}
	return res, nil
}

// EnforceLP runs LP enforcement: handlers in enforcement priority order until
// one resolves a violation (branched, cut off, reduced a domain, added a cut
// or constraint, or reported an unresolvable infeasibility). If every handler
// accepts, the relaxation solution is a solution of the original problem.
func (r *Registry) EnforceLP(env Env) (Result, error) {
	for _, e := range r.enfoOrder {
		if e.skip() {
			continue
		}
		hres, err := e.handler.EnforceLP(env, e.enabled())
		if err != nil {
			return Feasible, fmt.Errorf("LP enforcement of <%s>: %w", e.handler.Name(), err)
		}
		if hres == SolveLP {
			panic(fmt.Sprintf("constraint: <%s> returned solvelp from LP enforcement", e.handler.Name()))
		}
		if hres.decisive() {
			return hres, nil
		}
	}
	return Feasible, nil
}

// EnforcePseudo runs pseudo-solution enforcement, used when no relaxation
// was solved at the node. Handlers lacking the PseudoEnforcer capability
// accept the pseudo solution. A handler may answer SolveLP to demand a real
// relaxation.
func (r *Registry) EnforcePseudo(env Env) (Result, error) {
	for _, e := range r.enfoOrder {
		pe, ok := e.handler.(PseudoEnforcer)
		if !ok {
			continue
		}
		if e.skip() {
			continue
		}
		hres, err := pe.EnforcePseudo(env, e.enabled())
		if err != nil {
			return Feasible, fmt.Errorf("pseudo enforcement of <%s>: %w", e.handler.Name(), err)
		}
		if hres.decisive() {
			return hres, nil
		}
	}
	return Feasible, nil
}

// Presolve runs one presolving round over all capable handlers before the
// search starts. Handlers without the capability have nothing to presolve.
func (r *Registry) Presolve(env Env) (Result, error) {
	res := DidNotRun
	for _, e := range r.enfoOrder {
		pre, ok := e.handler.(Presolver)
		if !ok || e.skip() {
			continue
		}
		hres, err := pre.Presolve(env, e.enabled())
		if err != nil {
			return res, fmt.Errorf("presolving of <%s>: %w", e.handler.Name(), err)
		}
		switch hres {
		case Cutoff, Infeasible:
			return Cutoff, nil
		case ReducedDom:
			res = ReducedDom
		case DidNotFind:
			if res == DidNotRun {
				res = DidNotFind
			}
		}
	}
	return res, nil
}

// Propagate runs one domain propagation round over all capable handlers.
func (r *Registry) Propagate(env Env, depth int) (Result, error) {
	res := DidNotRun
	for _, e := range r.sepaOrder {
		prop, ok := e.handler.(Propagator)
		if !ok {
			continue
		}
		if !runsAtDepth(e.props.PropFreq, depth) || e.skip() {
			continue
		}
		hres, err := prop.Propagate(env, e.enabled())
		if err != nil {
			return res, fmt.Errorf("propagation of <%s>: %w", e.handler.Name(), err)
		}
		switch hres {
		case Cutoff:
			return Cutoff, nil
		case ReducedDom:
			res = ReducedDom
		case DidNotFind:
			if res == DidNotRun {
				res = DidNotFind
			}
		}
	}
	return res, nil
}

// CheckSol decides whether the candidate point vals is feasible for the
// original problem. Handlers run in check priority order; the first violation
// short-circuits the round. Checking has no side effects.
func (r *Registry) CheckSol(env Env, vals []float64) (Result, error) {
	for _, e := range r.checkOrder {
		if e.skip() {
			continue
		}
		hres, err := e.handler.Check(env, vals, e.checkable())
		if err != nil {
			return Infeasible, fmt.Errorf("check of <%s>: %w", e.handler.Name(), err)
		}
		if hres == Infeasible {
			return Infeasible, nil
		}
	}
	return Feasible, nil
}

// checkable returns the instances participating in solution checks; unlike
// separation/enforcement this includes disabled constraints, since a
// solution must satisfy the whole problem.
func (e *entry) checkable() []*Cons {
	out := make([]*Cons, 0, len(e.conss))
	for _, c := range e.conss {
		if c.check && c.State() != ConsDeleted {
			out = append(out, c)
		}
	}
	return out
}
