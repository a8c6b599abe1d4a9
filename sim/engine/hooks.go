package engine

import (
	"github.com/sarchlab/pdevs/sim/hooking"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// HookPosGlobalTime is triggered once per cycle, before the outputs are
// collected. The item is the time of the cycle.
var HookPosGlobalTime = &hooking.HookPos{Name: "GlobalTime"}

// HookPosInitialState is triggered for every atomic model when the runner is
// created. The item is the model and the detail a TransitionInfo of kind
// Initial.
var HookPosInitialState = &hooking.HookPos{Name: "InitialState"}

// HookPosTransition is triggered after every transition. The item is the
// model and the detail a TransitionInfo.
var HookPosTransition = &hooking.HookPos{Name: "Transition"}

// HookPosMsgRouted is triggered when a message lands in an inbox. The item is
// the message and the detail a RoutingInfo. Deliveries that the inbox
// discards as duplicates do not trigger it.
var HookPosMsgRouted = &hooking.HookPos{Name: "MsgRouted"}

// TransitionKind tells which transition function ran.
type TransitionKind int

// Kinds of transitions.
const (
	Initial TransitionKind = iota
	Internal
	External
	Confluent
)

func (k TransitionKind) String() string {
	switch k {
	case Initial:
		return "initial"
	case Internal:
		return "internal"
	case External:
		return "external"
	case Confluent:
		return "confluent"
	default:
		return "unknown"
	}
}

// TransitionInfo describes a transition.
type TransitionInfo struct {
	// Model is the full name of the model.
	Model   string
	Kind    TransitionKind
	Time    timing.VTimeInSec
	Elapsed timing.VTimeInSec

	// State is what the model reports through modeling.StateReporter, or
	// nil.
	State any

	// Next is the time of the next internal event of the model.
	Next timing.VTimeInSec
}

// RoutingInfo describes the delivery of a message into an inbox.
type RoutingInfo struct {
	Src  modeling.PortRef
	Dst  modeling.PortRef
	Time timing.VTimeInSec
}

func stateOf(m modeling.Atomic) any {
	if r, ok := m.(modeling.StateReporter); ok {
		return r.State()
	}

	return nil
}
