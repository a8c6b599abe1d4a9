// Package simulation bundles a runner with the services that a run usually
// needs: a trace database, a text trace, metrics, and a monitoring server.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sarchlab/pdevs/datarecording"
	"github.com/sarchlab/pdevs/monitoring"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/hooking"
	"github.com/sarchlab/pdevs/sim/timing"
	"github.com/sarchlab/pdevs/tracing"
	"github.com/sirupsen/logrus"
)

const progressResolution = 1000

// A Simulation provides the services required to run a model.
type Simulation struct {
	id     string
	runner *engine.Runner

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	dbTracer     *tracing.DBTracer
	textLogger   *tracing.TextLogger
	counter      *tracing.TransitionCounter
	metrics      *monitoring.Metrics
	monitor      *monitoring.Monitor
	monitorPort  int

	progressLock sync.Mutex
	progress     *monitoring.ProgressBar
	from, until  timing.VTimeInSec

	terminateOnce sync.Once
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetRunner returns the runner that drives the model.
func (s *Simulation) GetRunner() *engine.Runner {
	return s.runner
}

// GetDataRecorder returns the data recorder used in the simulation, or nil if
// recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetDBTracer returns the tracer that writes the trace database, or nil if
// recording is disabled.
func (s *Simulation) GetDBTracer() *tracing.DBTracer {
	return s.dbTracer
}

// GetTextLogger returns the text trace, or nil if none was requested.
func (s *Simulation) GetTextLogger() *tracing.TextLogger {
	return s.textLogger
}

// GetTransitionCounter returns the counter of transitions and deliveries.
func (s *Simulation) GetTransitionCounter() *tracing.TransitionCounter {
	return s.counter
}

// GetMetrics returns the run metrics.
func (s *Simulation) GetMetrics() *monitoring.Metrics {
	return s.metrics
}

// GetMonitor returns the monitor used in the simulation, or nil if
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorPort returns the port of the monitoring server, or 0.
func (s *Simulation) MonitorPort() int {
	return s.monitorPort
}

// Run advances the simulation up to the given time. When monitoring, a
// progress bar follows the simulated time.
func (s *Simulation) Run(
	ctx context.Context,
	until timing.VTimeInSec,
) (timing.VTimeInSec, error) {
	s.startProgress(until)
	defer s.completeProgress()

	if s.execRecorder != nil {
		s.execRecorder.Record("Stop Time", formatTime(until))
	}

	now, err := s.runner.AdvanceTo(ctx, until)

	logrus.WithFields(logrus.Fields{
		"now":        now,
		"cycles":     s.runner.Cycles(),
		"internal":   s.counter.KindTotal(engine.Internal),
		"external":   s.counter.KindTotal(engine.External),
		"confluent":  s.counter.KindTotal(engine.Confluent),
		"deliveries": s.counter.TotalDeliveries(),
	}).Info("simulation stopped")

	if err != nil {
		return now, err
	}

	if s.textLogger != nil {
		if err := s.textLogger.Err(); err != nil {
			return now, fmt.Errorf("writing trace: %w", err)
		}
	}

	return now, nil
}

func (s *Simulation) startProgress(until timing.VTimeInSec) {
	if s.monitor == nil || timing.IsInfinite(until) {
		return
	}

	s.progressLock.Lock()
	defer s.progressLock.Unlock()

	s.from = s.runner.Now()
	s.until = until
	s.progress = s.monitor.CreateProgressBar(
		"Simulated time", progressResolution)
}

func (s *Simulation) completeProgress() {
	s.progressLock.Lock()
	defer s.progressLock.Unlock()

	if s.progress == nil {
		return
	}

	s.monitor.CompleteProgressBar(s.progress)
	s.progress = nil
}

func (s *Simulation) trackProgress(ctx hooking.HookCtx) {
	if ctx.Pos != engine.HookPosGlobalTime {
		return
	}

	s.progressLock.Lock()
	defer s.progressLock.Unlock()

	if s.progress == nil || s.until <= s.from {
		return
	}

	now := ctx.Item.(timing.VTimeInSec)
	done := float64(now-s.from) / float64(s.until-s.from)
	s.progress.SetFinished(uint64(done * progressResolution))
}

// Terminate flushes the trace database and stops the monitoring server. It
// can be called more than once.
func (s *Simulation) Terminate() error {
	var errs []error

	s.terminateOnce.Do(func() {
		if s.monitor != nil {
			errs = append(errs, s.monitor.StopServer())
		}

		errs = append(errs, s.closeRecorder())
	})

	return errors.Join(errs...)
}

func (s *Simulation) closeRecorder() error {
	if s.dataRecorder == nil {
		return nil
	}

	s.execRecorder.End()
	s.dbTracer.Terminate()

	return s.dataRecorder.Close()
}

func formatTime(t timing.VTimeInSec) string {
	if timing.IsInfinite(t) {
		return "inf"
	}

	return fmt.Sprintf("%.10f", float64(t))
}
