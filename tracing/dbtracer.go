package tracing

import (
	"fmt"
	"sync"

	"github.com/sarchlab/pdevs/datarecording"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
	"github.com/tebeka/atexit"
)

const (
	transitionTable = "pdevs_transitions"
	routingTable    = "pdevs_routings"
)

// A TransitionRecord is a row of the transition table.
type TransitionRecord struct {
	Model   string
	Kind    string
	Time    float64
	Elapsed float64
	Next    float64
	State   string
}

// A RoutingRecord is a row of the routing table.
type RoutingRecord struct {
	MsgID string
	Src   string
	Dst   string
	Time  float64
	Value string
}

// DBTracer stores transitions and message deliveries into a DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	startTime, endTime timing.VTimeInSec

	terminated bool
}

// NewDBTracer creates a new DBTracer. It creates the tables that it writes.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(transitionTable, TransitionRecord{})
	dataRecorder.CreateTable(routingTable, RoutingRecord{})

	t := &DBTracer{
		backend: dataRecorder,
		endTime: timing.Infinity,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits the trace to the events that happen between start and
// end, inclusive.
func (t *DBTracer) SetTimeRange(startTime, endTime timing.VTimeInSec) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

func (t *DBTracer) inRange(now timing.VTimeInSec) bool {
	return !t.terminated && now >= t.startTime && now <= t.endTime
}

// GlobalTime does nothing. Cycle times can be read from the transitions.
func (t *DBTracer) GlobalTime(_ timing.VTimeInSec) {}

// InitialState records the initial state as a transition of kind initial.
func (t *DBTracer) InitialState(info engine.TransitionInfo) {
	t.Transition(info)
}

// Transition records a transition.
func (t *DBTracer) Transition(info engine.TransitionInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.inRange(info.Time) {
		return
	}

	t.backend.InsertData(transitionTable, TransitionRecord{
		Model:   info.Model,
		Kind:    info.Kind.String(),
		Time:    info.Time,
		Elapsed: info.Elapsed,
		Next:    info.Next,
		State:   fmt.Sprint(renderState(info.State)),
	})
}

// Routed records a message delivery.
func (t *DBTracer) Routed(msg modeling.Msg, info engine.RoutingInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.inRange(info.Time) {
		return
	}

	t.backend.InsertData(routingTable, RoutingRecord{
		MsgID: msg.ID,
		Src:   info.Src.String(),
		Dst:   info.Dst.String(),
		Time:  info.Time,
		Value: fmt.Sprint(msg.Value),
	})
}

// Terminate flushes the recorder. Events reported afterward are dropped.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	t.terminated = true
	t.backend.Flush()
}
