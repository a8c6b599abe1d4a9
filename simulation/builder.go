package simulation

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/sarchlab/pdevs/datarecording"
	"github.com/sarchlab/pdevs/monitoring"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/hooking"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	parallel       bool
	workers        int
	monitorOn      bool
	monitorPort    int
	recordOn       bool
	outputFileName string
	traceWriter    io.Writer
	traceCats      tracing.Category
	registerer     prometheus.Registerer
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
		recordOn:  true,
		traceCats: tracing.CategoryAll,
	}
}

// WithParallelEngine makes the coordinators run their children on
// goroutines.
func (b Builder) WithParallelEngine() Builder {
	b.parallel = true
	return b
}

// WithWorkers bounds the number of goroutines of a parallel engine.
func (b Builder) WithWorkers(n int) Builder {
	b.workers = n
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutRecording sets the simulation to not write a trace database.
func (b Builder) WithoutRecording() Builder {
	b.recordOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
// The ".sqlite3" extension is appended.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithTraceWriter writes a text trace of the given categories to w.
func (b Builder) WithTraceWriter(w io.Writer, categories tracing.Category) Builder {
	b.traceWriter = w
	b.traceCats = categories

	return b
}

// WithMetricsRegisterer registers the run metrics against reg instead of the
// global Prometheus registry.
func (b Builder) WithMetricsRegisterer(reg prometheus.Registerer) Builder {
	b.registerer = reg
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}

	if b.workers < 0 {
		panic("number of workers cannot be negative")
	}
}

// Build builds the simulation of the top model. Configuration errors of the
// model tree are returned.
func (b Builder) Build(top modeling.Model) (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id: xid.New().String(),
	}

	hooks, err := b.buildTracers(s)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithHooks(hooks...)}
	if b.parallel {
		opts = append(opts, engine.WithParallel(), engine.WithWorkers(b.workers))
	}

	s.runner, err = engine.NewRunner(top, opts...)
	if err != nil {
		s.closeRecorder()
		return nil, err
	}

	s.runner.AcceptHook(hooking.HookFunc(s.trackProgress))

	if b.monitorOn {
		err = b.startMonitor(s)
		if err != nil {
			s.closeRecorder()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildTracers(s *Simulation) ([]hooking.Hook, error) {
	metrics, err := monitoring.NewMetrics(b.registerer)
	if err != nil {
		return nil, err
	}

	s.metrics = metrics
	s.counter = tracing.NewTransitionCounter()
	hooks := []hooking.Hook{
		tracing.TraceHook(nil, metrics),
		tracing.TraceHook(nil, s.counter),
	}

	if b.traceWriter != nil {
		s.textLogger = tracing.NewTextLogger(b.traceWriter, b.traceCats)
		hooks = append(hooks, tracing.TraceHook(nil, s.textLogger))
	}

	if b.recordOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "pdevs_sim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
		s.execRecorder.Start()
		s.execRecorder.Record("Simulation ID", s.id)

		s.dbTracer = tracing.NewDBTracer(s.dataRecorder)
		hooks = append(hooks, tracing.TraceHook(nil, s.dbTracer))
	}

	return hooks, nil
}

func (b Builder) startMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterRunner(s.runner)
	s.monitor.RegisterMetrics(s.metrics)

	port, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	s.monitorPort = port

	return nil
}
