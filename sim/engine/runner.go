// Package engine runs P-DEVS models. A Runner drives a tree of processors
// that mirrors the model tree: a Coordinator for every coupled model and a
// simulator for every atomic model.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/sarchlab/pdevs/sim/hooking"
	"github.com/sarchlab/pdevs/sim/id"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
	"github.com/sirupsen/logrus"
)

// An Option configures a Runner.
type Option func(r *runnerConfig)

type runnerConfig struct {
	parallel bool
	workers  int
	start    timing.VTimeInSec
	ids      id.IDGenerator
	hooks    []hooking.Hook
}

// WithParallel runs the outputs and the transitions of the children of a
// coordinator on goroutines, with a barrier at the end of each phase.
func WithParallel() Option {
	return func(c *runnerConfig) {
		c.parallel = true
	}
}

// WithWorkers bounds the number of goroutines that a coordinator uses in
// parallel mode. It defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *runnerConfig) {
		c.workers = n
	}
}

// WithStartTime sets the time at which every model starts.
func WithStartTime(t timing.VTimeInSec) Option {
	return func(c *runnerConfig) {
		c.start = t
	}
}

// WithIDGenerator sets the generator of message IDs.
func WithIDGenerator(g id.IDGenerator) Option {
	return func(c *runnerConfig) {
		c.ids = g
	}
}

// WithHooks registers hooks before the initial states are reported.
func WithHooks(hooks ...hooking.Hook) Option {
	return func(c *runnerConfig) {
		c.hooks = append(c.hooks, hooks...)
	}
}

// A Runner drives the root of a model tree. It owns the global clock, which
// only moves between cycles.
type Runner struct {
	hooking.HookableBase

	env   *env
	root  processor
	clock *timing.Clock

	pauseLock sync.Mutex
	runLock   sync.Mutex

	cyclesLock sync.RWMutex
	cycles     uint64

	// failure is the error of the cycle that aborted the run.
	failure error

	models map[string]modeling.Model
	names  []string
}

// NewRunner validates the model tree and prepares it to run. The initial
// state of every atomic model is reported to the hooks registered with
// WithHooks.
func NewRunner(top modeling.Model, opts ...Option) (*Runner, error) {
	cfg := runnerConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.ids == nil {
		cfg.ids = id.NewIDGenerator()
		if cfg.parallel {
			cfg.ids = id.NewParallelIDGenerator()
		}
	}

	r := &Runner{
		clock:  timing.NewClock(cfg.start),
		models: make(map[string]modeling.Model),
	}

	r.env = &env{
		domain:   r,
		hooks:    &r.HookableBase,
		ids:      cfg.ids,
		parallel: cfg.parallel,
		workers:  cfg.workers,
	}

	for _, h := range cfg.hooks {
		r.AcceptHook(h)
	}

	b := treeBuilder{env: r.env, start: cfg.start, seen: make(map[any]string)}

	root, err := b.build(top, top.Name())
	if err != nil {
		return nil, err
	}

	r.root = root
	r.root.walk(func(p processor) {
		r.models[p.fullName()] = p.model()
		r.names = append(r.names, p.fullName())

		if s, ok := p.(*simulator); ok {
			s.recordInitialState()
		}
	})

	return r, nil
}

type treeBuilder struct {
	env   *env
	start timing.VTimeInSec
	seen  map[any]string
}

func (b *treeBuilder) build(m modeling.Model, path string) (processor, error) {
	if m == nil {
		return nil, fmt.Errorf("%w at %s", modeling.ErrNilModel, path)
	}

	if err := b.mustBeUsedOnce(m, path); err != nil {
		return nil, err
	}

	var (
		p   processor
		err error
	)

	switch m := m.(type) {
	case *modeling.Coupled:
		p, err = newCoordinator(b.env, m, path, b.build)
	case modeling.Atomic:
		p, err = newSimulator(b.env, m, path, b.start)
	default:
		err = fmt.Errorf("%w: %s is %T", ErrUnsupportedModel, path, m)
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}

func (b *treeBuilder) mustBeUsedOnce(m modeling.Model, path string) error {
	if !reflect.TypeOf(m).Comparable() {
		return nil
	}

	if other, found := b.seen[m]; found {
		return fmt.Errorf("%w: %s is also %s", ErrSharedModel, path, other)
	}

	b.seen[m] = path

	return nil
}

// Now returns the current global time.
func (r *Runner) Now() timing.VTimeInSec {
	return r.clock.Now()
}

// NextTime returns the time of the next cycle, or Infinity if no model has a
// scheduled internal event.
func (r *Runner) NextTime() timing.VTimeInSec {
	r.pauseLock.Lock()
	defer r.pauseLock.Unlock()

	return r.root.nextTime()
}

// Cycles returns the number of cycles run so far.
func (r *Runner) Cycles() uint64 {
	r.cyclesLock.RLock()
	defer r.cyclesLock.RUnlock()

	return r.cycles
}

// Models returns the full names of all the models in the tree, parents
// before children.
func (r *Runner) Models() []string {
	return append([]string(nil), r.names...)
}

// ModelByName returns a model by its full name, such as "Top.C1.Gen".
func (r *Runner) ModelByName(name string) (modeling.Model, bool) {
	m, found := r.models[name]
	return m, found
}

// Pause blocks the runner before its next cycle until Continue is called.
func (r *Runner) Pause() {
	r.pauseLock.Lock()
}

// Continue resumes a paused runner.
func (r *Runner) Continue() {
	r.pauseLock.Unlock()
}

// AdvanceTo runs cycles until the next event time is infinite or later than
// stopTime. It returns the global time reached. A ModelError aborts the run;
// the models are then left in the state of the failed cycle, every inbox is
// emptied, and later calls return the same error without running. The
// context is checked between cycles.
func (r *Runner) AdvanceTo(
	ctx context.Context,
	stopTime timing.VTimeInSec,
) (timing.VTimeInSec, error) {
	r.runLock.Lock()
	defer r.runLock.Unlock()

	logrus.WithField("stop", stopTime).Debug("advance started")

	for {
		if err := ctx.Err(); err != nil {
			return r.Now(), err
		}

		done, err := r.step(stopTime)
		if err != nil {
			logrus.WithError(err).Debug("advance aborted")
			return r.Now(), err
		}

		if done {
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"now":    r.Now(),
		"cycles": r.Cycles(),
	}).Debug("advance finished")

	return r.Now(), nil
}

func (r *Runner) step(stopTime timing.VTimeInSec) (bool, error) {
	r.pauseLock.Lock()
	defer r.pauseLock.Unlock()

	if r.failure != nil {
		return false, r.failure
	}

	t := r.root.nextTime()
	if timing.IsInfinite(t) || t > stopTime {
		return true, nil
	}

	if t < r.Now() {
		return false, fmt.Errorf("%w: next event at %.10f, now %.10f",
			timing.ErrTimeWentBackward, t, r.Now())
	}

	if err := r.cycle(t); err != nil {
		r.abort(err)
		return false, err
	}

	return false, r.clock.Advance(t)
}

// abort empties every inbox of the tree and keeps the error for later calls.
func (r *Runner) abort(err error) {
	r.root.walk(func(p processor) {
		p.reset()
	})

	r.failure = err
}

func (r *Runner) cycle(t timing.VTimeInSec) error {
	logrus.WithField("time", t).Debug("cycle")

	r.env.invoke(HookPosGlobalTime, t, nil)

	out, err := r.root.collect(t)
	if err != nil {
		return err
	}

	for _, e := range out {
		logrus.WithFields(logrus.Fields{
			"port": e.port,
			"src":  e.msg.Src.String(),
		}).Debug("message left the top model")
	}

	if err := r.root.transition(t); err != nil {
		return err
	}

	r.cyclesLock.Lock()
	r.cycles++
	r.cyclesLock.Unlock()

	return nil
}
