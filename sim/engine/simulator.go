package engine

import (
	"fmt"
	"sort"

	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// A simulator drives an atomic model. It remembers when the model last
// transitioned and when its next internal event is due.
type simulator struct {
	env   *env
	atom  modeling.Atomic
	path  string
	inbox *modeling.Inbox

	tl timing.VTimeInSec
	tn timing.VTimeInSec
}

func newSimulator(
	e *env,
	m modeling.Atomic,
	path string,
	start timing.VTimeInSec,
) (*simulator, error) {
	s := &simulator{
		env:   e,
		atom:  m,
		path:  path,
		inbox: modeling.NewInbox(),
		tl:    start,
	}

	ta, err := s.timeAdvance()
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %v",
			ErrIllDefinedTimeAdvance, path, err)
	}

	s.tn = start + ta

	return s, nil
}

func (s *simulator) model() modeling.Model {
	return s.atom
}

func (s *simulator) fullName() string {
	return s.path
}

func (s *simulator) nextTime() timing.VTimeInSec {
	return s.tn
}

func (s *simulator) hasInput() bool {
	return !s.inbox.Empty()
}

func (s *simulator) reset() {
	s.inbox.Clear()
}

func (s *simulator) walk(f func(p processor)) {
	f(s)
}

func (s *simulator) recordInitialState() {
	s.env.invoke(HookPosInitialState, s.atom, TransitionInfo{
		Model: s.path,
		Kind:  Initial,
		Time:  s.tl,
		State: stateOf(s.atom),
		Next:  s.tn,
	})
}

func (s *simulator) collect(t timing.VTimeInSec) ([]emission, error) {
	if s.tn != t {
		return nil, nil
	}

	var values map[string]any

	err := s.guard(t, PhaseOutput, func() error {
		values = s.atom.Output()
		return nil
	})
	if err != nil {
		return nil, err
	}

	ports := make([]string, 0, len(values))
	for p := range values {
		ports = append(ports, p)
	}

	sort.Strings(ports)

	out := make([]emission, 0, len(ports))

	for _, name := range ports {
		v := values[name]

		if err := s.outputMustBeValid(name, v); err != nil {
			return nil, &ModelError{
				Model: s.path, Time: t, Phase: PhaseOutput, Err: err,
			}
		}

		out = append(out, emission{
			port: name,
			msg: modeling.Msg{
				ID:    s.env.ids.Generate(),
				Value: v,
				Src:   modeling.PortRef{Model: s.path, Port: name},
				Time:  t,
			},
		})
	}

	return out, nil
}

func (s *simulator) outputMustBeValid(name string, v any) error {
	p, found := s.atom.LookupPort(name)
	if !found {
		return fmt.Errorf("%w %s", modeling.ErrUnknownPort, name)
	}

	if p.Direction() != modeling.Out {
		return fmt.Errorf("%w: %s is an %s port",
			modeling.ErrPortDirection, name, p.Direction())
	}

	if !p.Accepts(v) {
		return fmt.Errorf("%w: %T sent on %s, which carries %s",
			modeling.ErrPortTypeMismatch, v, name, p.Type())
	}

	return nil
}

func (s *simulator) inject(
	port string,
	msg modeling.Msg,
	t timing.VTimeInSec,
) {
	if !s.inbox.Add(port, msg) {
		return
	}

	s.env.invoke(HookPosMsgRouted, msg, RoutingInfo{
		Src:  msg.Src,
		Dst:  modeling.PortRef{Model: s.path, Port: port},
		Time: t,
	})
}

func (s *simulator) transition(t timing.VTimeInSec) error {
	defer s.inbox.Clear()

	imminent := s.tn == t
	received := !s.inbox.Empty()

	var (
		kind    TransitionKind
		elapsed timing.VTimeInSec
		apply   func() error
	)

	switch {
	case imminent && received:
		kind = Confluent
		apply = func() error { return modeling.Confluent(s.atom, s.inbox) }
	case imminent:
		kind = Internal
		apply = s.atom.InternalTransition
	case received:
		kind = External
		elapsed = t - s.tl
		apply = func() error {
			return s.atom.ExternalTransition(elapsed, s.inbox)
		}
	default:
		return nil
	}

	if err := s.guard(t, PhaseTransition, apply); err != nil {
		return err
	}

	var ta timing.VTimeInSec

	err := s.guard(t, PhaseTimeAdvance, func() error {
		var err error
		ta, err = s.timeAdvance()

		return err
	})
	if err != nil {
		return err
	}

	s.tl = t
	s.tn = t + ta

	s.env.invoke(HookPosTransition, s.atom, TransitionInfo{
		Model:   s.path,
		Kind:    kind,
		Time:    t,
		Elapsed: elapsed,
		State:   stateOf(s.atom),
		Next:    s.tn,
	})

	return nil
}

func (s *simulator) timeAdvance() (timing.VTimeInSec, error) {
	ta := s.atom.TimeAdvance()
	if err := timing.TimeAdvanceMustBeValid(ta); err != nil {
		return 0, err
	}

	return ta, nil
}

// guard runs f and turns both the returned error and a panic into a
// ModelError.
func (s *simulator) guard(
	t timing.VTimeInSec,
	phase Phase,
	f func() error,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ModelError{
				Model: s.path,
				Time:  t,
				Phase: phase,
				Err:   fmt.Errorf("panic: %v", r),
			}
		}
	}()

	if ferr := f(); ferr != nil {
		if phase == PhaseTimeAdvance {
			ferr = fmt.Errorf("%w: %v", ErrIllDefinedTimeAdvance, ferr)
		}

		return &ModelError{Model: s.path, Time: t, Phase: phase, Err: ferr}
	}

	return nil
}
