// Package tracing turns what a runner reports through hooks into traces:
// text lines, counters, and database tables.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/hooking"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// A Tracer is notified of the events of a run.
type Tracer interface {
	// GlobalTime is called once per cycle, before any output is collected.
	GlobalTime(t timing.VTimeInSec)

	// InitialState is called for every atomic model when the runner is
	// created.
	InitialState(info engine.TransitionInfo)

	// Transition is called after every transition.
	Transition(info engine.TransitionInfo)

	// Routed is called when a message lands in an inbox.
	Routed(msg modeling.Msg, info engine.RoutingInfo)
}

// CollectTrace lets the tracer collect the trace of a runner. Registering the
// same tracer twice panics.
func CollectTrace(domain hooking.Hookable, tracer Tracer) {
	domain.AcceptHook(TraceHook(domain, tracer))
}

// TraceHook returns the hook that feeds a tracer, so that it can be passed to
// engine.WithHooks and see the initial states.
func TraceHook(domain hooking.Hookable, tracer Tracer) hooking.Hook {
	if domain != nil {
		for _, hook := range domain.Hooks() {
			hook, ok := hook.(*traceHook)
			if ok && hook.t == tracer {
				panic(fmt.Sprintf("tracer %s is already collecting",
					reflect.TypeOf(tracer)))
			}
		}
	}

	return &traceHook{t: tracer}
}

type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case engine.HookPosGlobalTime:
		h.t.GlobalTime(ctx.Item.(timing.VTimeInSec))
	case engine.HookPosInitialState:
		h.t.InitialState(ctx.Detail.(engine.TransitionInfo))
	case engine.HookPosTransition:
		h.t.Transition(ctx.Detail.(engine.TransitionInfo))
	case engine.HookPosMsgRouted:
		h.t.Routed(ctx.Item.(modeling.Msg), ctx.Detail.(engine.RoutingInfo))
	}
}
