package basic

import (
	"fmt"

	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// AccumulatorState is the running sum and whether a reset was requested.
type AccumulatorState struct {
	Sum          int
	ResetPending bool
}

// String renders the state as "[sum, reset]", with the flag as 0 or 1.
func (s AccumulatorState) String() string {
	reset := 0
	if s.ResetPending {
		reset = 1
	}

	return fmt.Sprintf("[%d, %d]", s.Sum, reset)
}

// An Accumulator adds up the values received on its add port. A value on its
// reset port makes it emit the sum on its sum port and start over from zero.
type Accumulator struct {
	*modeling.AtomicBase

	state AccumulatorState
}

// NewAccumulator creates an Accumulator.
func NewAccumulator(name string) *Accumulator {
	a := &Accumulator{
		AtomicBase: modeling.NewAtomicBase(name),
	}
	a.AddPort(modeling.NewInPort[int]("add"))
	a.AddPort(modeling.NewInPort[bool]("reset"))
	a.AddPort(modeling.NewOutPort[int]("sum"))

	return a
}

// TimeAdvance is zero when a reset is pending.
func (a *Accumulator) TimeAdvance() timing.VTimeInSec {
	if a.state.ResetPending {
		return 0
	}

	return timing.Infinity
}

// Output emits the sum before it is reset.
func (a *Accumulator) Output() map[string]any {
	return map[string]any{"sum": a.state.Sum}
}

// InternalTransition resets the sum.
func (a *Accumulator) InternalTransition() error {
	a.state = AccumulatorState{}
	return nil
}

// ExternalTransition adds the received values and records reset requests.
func (a *Accumulator) ExternalTransition(
	_ timing.VTimeInSec,
	inbox *modeling.Inbox,
) error {
	for _, v := range modeling.ValuesOf[int](inbox, "add") {
		a.state.Sum += v
	}

	for _, r := range modeling.ValuesOf[bool](inbox, "reset") {
		if r {
			a.state.ResetPending = true
		}
	}

	return nil
}

// State returns the current state.
func (a *Accumulator) State() any {
	return a.state
}
