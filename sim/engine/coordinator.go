package engine

import (
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/naming"
	"github.com/sarchlab/pdevs/sim/timing"
)

type target struct {
	child int
	port  string
}

// A Coordinator drives a coupled model. It keeps the next event time of each
// child in a schedule, under the index of the child, and routes messages
// along the couplings of the model.
type Coordinator struct {
	env     *env
	coupled *modeling.Coupled
	path    string

	children []processor
	schedule *timing.Schedule
	received []bool

	ics  map[modeling.PortRef][]target
	eocs map[modeling.PortRef][]string
	eics map[string][]target
}

func newCoordinator(
	e *env,
	c *modeling.Coupled,
	path string,
	build func(m modeling.Model, path string) (processor, error),
) (*Coordinator, error) {
	co := &Coordinator{
		env:      e,
		coupled:  c,
		path:     path,
		schedule: timing.NewSchedule(),
		ics:      make(map[modeling.PortRef][]target),
		eocs:     make(map[modeling.PortRef][]string),
		eics:     make(map[string][]target),
	}

	index := make(map[string]int)

	for _, sub := range c.Submodels() {
		child, err := build(sub, naming.BuildName(path, sub.Name()))
		if err != nil {
			return nil, err
		}

		index[sub.Name()] = co.schedule.Add(child.nextTime())
		co.children = append(co.children, child)
	}

	co.received = make([]bool, len(co.children))

	for _, cp := range c.ICs() {
		co.ics[cp.From] = append(co.ics[cp.From],
			target{child: index[cp.To.Model], port: cp.To.Port})
	}

	for _, cp := range c.EOCs() {
		co.eocs[cp.From] = append(co.eocs[cp.From], cp.To.Port)
	}

	for _, cp := range c.EICs() {
		co.eics[cp.From.Port] = append(co.eics[cp.From.Port],
			target{child: index[cp.To.Model], port: cp.To.Port})
	}

	return co, nil
}

// Model returns the coupled model that the coordinator drives.
func (c *Coordinator) Model() *modeling.Coupled {
	return c.coupled
}

func (c *Coordinator) model() modeling.Model {
	return c.coupled
}

func (c *Coordinator) fullName() string {
	return c.path
}

// NextTime returns the earliest next event time among the children.
func (c *Coordinator) NextTime() timing.VTimeInSec {
	return c.schedule.Earliest()
}

func (c *Coordinator) nextTime() timing.VTimeInSec {
	return c.NextTime()
}

func (c *Coordinator) hasInput() bool {
	for _, r := range c.received {
		if r {
			return true
		}
	}

	return false
}

func (c *Coordinator) reset() {
	clear(c.received)
}

func (c *Coordinator) walk(f func(p processor)) {
	f(c)

	for _, child := range c.children {
		child.walk(f)
	}
}

func (c *Coordinator) collect(t timing.VTimeInSec) ([]emission, error) {
	imminent := c.schedule.Imminent(t)
	outputs := make([][]emission, len(imminent))

	err := c.env.forEach(len(imminent), func(i int) error {
		out, err := c.children[imminent[i]].collect(t)
		outputs[i] = out

		return err
	})
	if err != nil {
		return nil, err
	}

	var up []emission

	for i, child := range imminent {
		for _, e := range outputs[i] {
			up = c.route(child, e, t, up)
		}
	}

	return up, nil
}

// route delivers the message emitted by a child along the internal
// couplings and appends the messages that leave the model through the
// external output couplings to up.
func (c *Coordinator) route(
	child int,
	e emission,
	t timing.VTimeInSec,
	up []emission,
) []emission {
	from := modeling.PortRef{
		Model: c.children[child].model().Name(),
		Port:  e.port,
	}

	for _, dst := range c.ics[from] {
		c.deliver(dst, e.msg, t)
	}

	for _, port := range c.eocs[from] {
		up = append(up, emission{port: port, msg: e.msg})
	}

	return up
}

func (c *Coordinator) deliver(dst target, msg modeling.Msg, t timing.VTimeInSec) {
	c.children[dst.child].inject(dst.port, msg, t)
	c.received[dst.child] = true
}

func (c *Coordinator) inject(
	port string,
	msg modeling.Msg,
	t timing.VTimeInSec,
) {
	for _, dst := range c.eics[port] {
		c.deliver(dst, msg, t)
	}
}

func (c *Coordinator) transition(t timing.VTimeInSec) error {
	active := make([]int, 0, len(c.children))

	for i, child := range c.children {
		if c.received[i] || child.nextTime() == t {
			active = append(active, i)
		}
	}

	err := c.env.forEach(len(active), func(i int) error {
		return c.children[active[i]].transition(t)
	})

	for _, i := range active {
		c.schedule.Update(i, c.children[i].nextTime())
		c.received[i] = false
	}

	return err
}
