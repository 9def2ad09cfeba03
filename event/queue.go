package event

// Queue serializes event processing. In immediate mode every added event is
// dispatched through its target filter right away. During bulk domain-change
// application the queue is put in delayed mode: events are buffered, bound
// changes on the same variable and bound side are merged, and everything is
// flushed in FIFO order when delay mode ends.
type Queue struct {
	pending []queued
	delayed bool
}

type queued struct {
	filter *Filter
	ev     *Event
}

// NewQueue creates an event queue in immediate mode.
func NewQueue() *Queue {
	return &Queue{}
}

// IsDelayed reports whether added events are currently buffered.
func (q *Queue) IsDelayed() bool { return q.delayed }

// Delay switches the queue to delayed mode.
func (q *Queue) Delay() {
	if q.delayed {
		panic("event: queue already delayed")
	}
	q.delayed = true
}

// Add dispatches ev through filter, or buffers it while the queue is delayed.
// Buffered bound-change events on the same variable and bound side are merged
// into one event spanning the oldest old bound and the newest new bound; a
// change that restores the original bound cancels the buffered event.
func (q *Queue) Add(filter *Filter, ev *Event) error {
	if !q.delayed {
		return filter.Process(ev)
	}

	if ev.Kind()&BoundChanged != 0 {
		side := LbChanged
		if ev.Kind()&UbChanged != 0 {
			side = UbChanged
		}
		for i := range q.pending {
			p := q.pending[i].ev
			if p.variable != ev.variable || p.typ&side == 0 {
				continue
			}
			if p.oldVal == ev.newVal {
				// change reverted, forget the event
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				return nil
			}
			merged := NewLbChanged(p.variable, p.oldVal, ev.newVal)
			if side == UbChanged {
				merged = NewUbChanged(p.variable, p.oldVal, ev.newVal)
			}
			q.pending[i].ev = merged
			return nil
		}
	}

	q.pending = append(q.pending, queued{filter: filter, ev: ev})
	return nil
}

// ProcessAll flushes all buffered events in FIFO order and leaves delayed
// mode. Handlers triggered during the flush may add further events; those are
// processed immediately.
func (q *Queue) ProcessAll() error {
	q.delayed = false
	for len(q.pending) > 0 {
		next := q.pending[0]
		q.pending = q.pending[1:]
		if err := next.filter.Process(next.ev); err != nil {
			q.pending = nil
			return err
		}
	}
	q.pending = nil
	return nil
}

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.pending) }
