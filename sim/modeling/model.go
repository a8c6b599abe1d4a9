package modeling

import (
	"github.com/sarchlab/pdevs/sim/naming"
	"github.com/sarchlab/pdevs/sim/timing"
)

// A Model is either an Atomic model or a Coupled model.
type Model interface {
	naming.Named
	PortOwner
}

// An Atomic model is a leaf state machine.
//
// TimeAdvance must be a pure function of the state. Output is only called
// when the model is imminent and must not change the state; it returns at
// most one value per output port, keyed by port name. InternalTransition is
// applied when the model is imminent and received nothing. ExternalTransition
// is applied when the model received messages but is not imminent; elapsed is
// the time since the last transition.
type Atomic interface {
	Model

	TimeAdvance() timing.VTimeInSec
	Output() map[string]any
	InternalTransition() error
	ExternalTransition(elapsed timing.VTimeInSec, inbox *Inbox) error
}

// A ConfluentTransitioner decides by itself how to handle being imminent and
// receiving messages in the same cycle.
type ConfluentTransitioner interface {
	ConfluentTransition(inbox *Inbox) error
}

// ConfluentOrder is the order in which the internal and the external
// transitions compose into the confluent transition.
type ConfluentOrder int

// Confluent orders.
const (
	InternalFirst ConfluentOrder = iota
	ExternalFirst
)

// A ConfluentOrderer picks the order of its confluent transition without
// writing one.
type ConfluentOrderer interface {
	ConfluentOrder() ConfluentOrder
}

// A StateReporter exposes its state so that trace sinks can render it.
type StateReporter interface {
	State() any
}

// Confluent applies the confluent transition of the model. Models that do
// not implement ConfluentTransitioner run the internal transition followed by
// the external transition with zero elapsed time, unless they ask for
// ExternalFirst.
func Confluent(m Atomic, inbox *Inbox) error {
	if c, ok := m.(ConfluentTransitioner); ok {
		return c.ConfluentTransition(inbox)
	}

	order := InternalFirst
	if o, ok := m.(ConfluentOrderer); ok {
		order = o.ConfluentOrder()
	}

	if order == ExternalFirst {
		if err := m.ExternalTransition(0, inbox); err != nil {
			return err
		}

		return m.InternalTransition()
	}

	if err := m.InternalTransition(); err != nil {
		return err
	}

	return m.ExternalTransition(0, inbox)
}

// AtomicBase provides the name and the ports of an atomic model.
type AtomicBase struct {
	naming.NamedBase
	PortOwnerBase
}

// NewAtomicBase creates a new AtomicBase. It panics if the name is not valid.
func NewAtomicBase(name string) *AtomicBase {
	naming.NameMustBeValid(name)

	b := new(AtomicBase)
	b.NamedBase = naming.MakeNamedBase(name)
	b.PortOwnerBase = MakePortOwnerBase()

	return b
}
