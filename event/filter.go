package event

import (
	"fmt"

	"github.com/cipkit/cipkit/numerics"
)

type filterEntry struct {
	mask    Type // 0 marks a free slot
	handler Handler
	data    any
}

// Filter maps event types to the (handler, data) pairs that subscribed to
// them. Entries are invoked in slot order, which is registration order as long
// as no entries were dropped; dropped slots are reused by later Catch calls.
type Filter struct {
	entries []filterEntry
	nfree   int
	grow    numerics.GrowCalc
}

// NewFilter creates an empty event filter using the given growth policy for
// its entry storage.
func NewFilter(grow numerics.GrowCalc) *Filter {
	return &Filter{grow: grow}
}

// Catch subscribes handler (with its opaque data) to all event types in mask
// and returns the filter position to be passed to Drop. mask must not be zero.
func (f *Filter) Catch(mask Type, handler Handler, data any) int {
	if mask == 0 {
		panic("event: catch with empty type mask")
	}
	if handler == nil {
		panic("event: catch with nil handler")
	}

	entry := filterEntry{mask: mask, handler: handler, data: data}

	if f.nfree > 0 {
		for i := range f.entries {
			if f.entries[i].mask == 0 {
				f.entries[i] = entry
				f.nfree--
				return i
			}
		}
		panic("event: free entry count out of sync")
	}

	if len(f.entries) == cap(f.entries) {
		grown := make([]filterEntry, len(f.entries), f.grow.Grow(cap(f.entries), len(f.entries)+1))
		copy(grown, f.entries)
		f.entries = grown
	}
	f.entries = append(f.entries, entry)
	return len(f.entries) - 1
}

// Drop removes the subscription at pos, or searches for the matching
// (mask, handler, data) entry if pos is negative. Dropping a subscription
// that was never caught is a contract violation.
func (f *Filter) Drop(mask Type, handler Handler, data any, pos int) {
	if pos < 0 {
		for i := range f.entries {
			if f.entries[i].mask == mask && f.entries[i].handler == handler && f.entries[i].data == data {
				pos = i
				break
			}
		}
		if pos < 0 {
			panic(fmt.Sprintf("event: drop without matching catch (mask %s, handler %s)", mask, handler.Name()))
		}
	}
	if pos >= len(f.entries) || f.entries[pos].mask == 0 {
		panic(fmt.Sprintf("event: drop of empty filter position %d", pos))
	}
	if f.entries[pos].mask != mask || f.entries[pos].handler != handler {
		panic(fmt.Sprintf("event: drop at position %d does not match catch", pos))
	}
	f.entries[pos] = filterEntry{}
	f.nfree++
}

// Process invokes every subscribed handler whose mask matches the event's
// type, in slot order.
func (f *Filter) Process(ev *Event) error {
	for i := range f.entries {
		if f.entries[i].mask&ev.Kind() == 0 {
			continue
		}
		if err := f.entries[i].handler.Execute(ev, f.entries[i].data); err != nil {
			return fmt.Errorf("event handler %s: %w", f.entries[i].handler.Name(), err)
		}
	}
	return nil
}

// Len returns the number of live subscriptions.
func (f *Filter) Len() int { return len(f.entries) - f.nfree }
