package basic

import (
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// FilterFirst forwards the first value it receives and drops everything
// after it.
type FilterFirst struct {
	*modeling.AtomicBase

	pending   bool
	value     int
	forwarded bool
}

// NewFilterFirst creates a FilterFirst with an in and an out port.
func NewFilterFirst(name string) *FilterFirst {
	f := &FilterFirst{
		AtomicBase: modeling.NewAtomicBase(name),
	}
	f.AddPort(modeling.NewInPort[int]("in"))
	f.AddPort(modeling.NewOutPort[int]("out"))

	return f
}

// TimeAdvance is zero while a value waits to be forwarded.
func (f *FilterFirst) TimeAdvance() timing.VTimeInSec {
	if f.pending {
		return 0
	}

	return timing.Infinity
}

// Output emits the value that waits to be forwarded.
func (f *FilterFirst) Output() map[string]any {
	if !f.pending {
		return nil
	}

	return map[string]any{"out": f.value}
}

// InternalTransition marks the value as forwarded.
func (f *FilterFirst) InternalTransition() error {
	f.pending = false
	f.forwarded = true

	return nil
}

// ExternalTransition keeps the first value ever received.
func (f *FilterFirst) ExternalTransition(
	_ timing.VTimeInSec,
	inbox *modeling.Inbox,
) error {
	if f.forwarded || f.pending {
		return nil
	}

	values := modeling.ValuesOf[int](inbox, "in")
	if len(values) == 0 {
		return nil
	}

	f.value = values[0]
	f.pending = true

	return nil
}

// State tells if the first value is waiting and if it has been forwarded.
func (f *FilterFirst) State() any {
	return [2]bool{f.pending, f.forwarded}
}
