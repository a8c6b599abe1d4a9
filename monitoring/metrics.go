package monitoring

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// Metrics exposes the progress of a run as Prometheus metrics. It is a
// tracing.Tracer, so it attaches to a runner with tracing.CollectTrace or
// tracing.TraceHook.
type Metrics struct {
	gatherer prometheus.Gatherer

	Cycles      prometheus.Counter
	Transitions *prometheus.CounterVec
	Deliveries  prometheus.Counter
	SimTime     prometheus.Gauge
}

// NewMetrics registers the run metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	cycles, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pdevs_cycles_total",
		Help: "Number of simulation cycles run.",
	}), "pdevs_cycles_total")
	if err != nil {
		return nil, err
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdevs_transitions_total",
		Help: "Number of transitions of atomic models, labeled by kind.",
	}, []string{"kind"})
	transitions, err = registerCounterVec(reg, transitions, "pdevs_transitions_total")
	if err != nil {
		return nil, err
	}

	routed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pdevs_messages_routed_total",
		Help: "Number of messages delivered into inboxes.",
	}), "pdevs_messages_routed_total")
	if err != nil {
		return nil, err
	}

	globalTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pdevs_global_time",
		Help: "Simulated time of the latest cycle.",
	}), "pdevs_global_time")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:    gatherer,
		Cycles:      cycles,
		Transitions: transitions,
		Deliveries:  routed,
		SimTime:     globalTime,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := m.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// GlobalTime counts a cycle.
func (m *Metrics) GlobalTime(t timing.VTimeInSec) {
	m.Cycles.Inc()
	m.SimTime.Set(float64(t))
}

// InitialState does nothing. Initial states are not transitions.
func (m *Metrics) InitialState(_ engine.TransitionInfo) {}

// Transition counts a transition by its kind.
func (m *Metrics) Transition(info engine.TransitionInfo) {
	m.Transitions.WithLabelValues(info.Kind.String()).Inc()
}

// Routed counts a delivery.
func (m *Metrics) Routed(_ modeling.Msg, _ engine.RoutingInfo) {
	m.Deliveries.Inc()
}

func registerCounter(
	reg prometheus.Registerer,
	counter prometheus.Counter,
	name string,
) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}

			return nil, fmt.Errorf(
				"collector %s already registered with incompatible type", name)
		}

		return nil, err
	}

	return counter, nil
}

func registerCounterVec(
	reg prometheus.Registerer,
	vec *prometheus.CounterVec,
	name string,
) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}

			return nil, fmt.Errorf(
				"collector %s already registered with incompatible type", name)
		}

		return nil, err
	}

	return vec, nil
}

func registerGauge(
	reg prometheus.Registerer,
	gauge prometheus.Gauge,
	name string,
) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}

			return nil, fmt.Errorf(
				"collector %s already registered with incompatible type", name)
		}

		return nil, err
	}

	return gauge, nil
}
