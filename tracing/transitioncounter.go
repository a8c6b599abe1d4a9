package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// TransitionCounter counts the transitions of each model by kind, and the
// messages delivered to each port.
type TransitionCounter struct {
	lock       sync.Mutex
	cycles     uint64
	counts     map[string]map[engine.TransitionKind]uint64
	deliveries map[string]uint64
}

// NewTransitionCounter creates a new TransitionCounter
func NewTransitionCounter() *TransitionCounter {
	return &TransitionCounter{
		counts:     make(map[string]map[engine.TransitionKind]uint64),
		deliveries: make(map[string]uint64),
	}
}

// ModelNames returns the names of the models that transitioned, sorted.
func (c *TransitionCounter) ModelNames() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	names := make([]string, 0, len(c.counts))
	for n := range c.counts {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Count returns the number of transitions of a kind that a model applied.
func (c *TransitionCounter) Count(
	model string,
	kind engine.TransitionKind,
) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[model][kind]
}

// Total returns the number of transitions a model applied.
func (c *TransitionCounter) Total(model string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	var total uint64
	for kind, n := range c.counts[model] {
		if kind != engine.Initial {
			total += n
		}
	}

	return total
}

// KindTotal returns the number of transitions of a kind over all the models.
func (c *TransitionCounter) KindTotal(kind engine.TransitionKind) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	var total uint64
	for _, kinds := range c.counts {
		total += kinds[kind]
	}

	return total
}

// Deliveries returns the number of messages that landed on a port, given by
// its full name such as "Top.C3.C2.Acc.add".
func (c *TransitionCounter) Deliveries(port string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.deliveries[port]
}

// TotalDeliveries returns the number of messages that landed on any port.
func (c *TransitionCounter) TotalDeliveries() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	var total uint64
	for _, n := range c.deliveries {
		total += n
	}

	return total
}

// Cycles returns the number of cycles seen.
func (c *TransitionCounter) Cycles() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.cycles
}

// GlobalTime counts a cycle.
func (c *TransitionCounter) GlobalTime(_ timing.VTimeInSec) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.cycles++
}

// InitialState counts the initial state of a model.
func (c *TransitionCounter) InitialState(info engine.TransitionInfo) {
	c.count(info)
}

// Transition counts a transition.
func (c *TransitionCounter) Transition(info engine.TransitionInfo) {
	c.count(info)
}

func (c *TransitionCounter) count(info engine.TransitionInfo) {
	c.lock.Lock()
	defer c.lock.Unlock()

	kinds, ok := c.counts[info.Model]
	if !ok {
		kinds = make(map[engine.TransitionKind]uint64)
		c.counts[info.Model] = kinds
	}

	kinds[info.Kind]++
}

// Routed counts a delivery.
func (c *TransitionCounter) Routed(_ modeling.Msg, info engine.RoutingInfo) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.deliveries[info.Dst.String()]++
}
