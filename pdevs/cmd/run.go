package cmd

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/browser"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/timing"
	"github.com/sarchlab/pdevs/simulation"
	"github.com/sarchlab/pdevs/tracing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type runOptions struct {
	config      string
	until       float64
	trace       string
	traceDB     string
	parallel    bool
	workers     int
	monitor     bool
	monitorPort int
	openMonitor bool
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a network until a stop time",
		Long: `Run a network until no model has a scheduled event or the ` +
			`next event is later than the stop time. The trace is written ` +
			`to the standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNetwork(cmd, o)
		},
	}

	runCmd.Flags().StringVarP(&o.config, "config", "c", "",
		"Network description file (.yaml, .yml, or .toml)")
	runCmd.Flags().Float64Var(&o.until, "until", math.Inf(1),
		"Stop time of the run")
	runCmd.Flags().StringVar(&o.trace, "trace", "all",
		"Comma-separated trace categories: time, state, routing, all, none")
	runCmd.Flags().StringVar(&o.traceDB, "trace-db", "",
		"Record the trace into this SQLite database")
	runCmd.Flags().BoolVar(&o.parallel, "parallel", false,
		"Run the children of coupled models on goroutines")
	runCmd.Flags().IntVar(&o.workers, "workers", 0,
		"Goroutines per coupled model in parallel mode, 0 for GOMAXPROCS")
	runCmd.Flags().BoolVar(&o.monitor, "monitor", false,
		"Serve the monitoring page while running")
	runCmd.Flags().IntVar(&o.monitorPort, "monitor-port", 0,
		"Port of the monitoring page, random if 0")
	runCmd.Flags().BoolVar(&o.openMonitor, "open-monitor", false,
		"Open the monitoring page in a browser")

	_ = runCmd.MarkFlagRequired("config")

	return runCmd
}

func runNetwork(cmd *cobra.Command, o *runOptions) error {
	top, err := loadNetwork(o.config)
	if err != nil {
		return err
	}

	categories, err := tracing.ParseCategories(o.trace)
	if err != nil {
		return err
	}

	s, err := o.builder(cmd, categories).Build(top)
	if err != nil {
		return err
	}

	defer func() {
		if err := s.Terminate(); err != nil {
			logrus.WithError(err).Error("failed to terminate the simulation")
		}
	}()

	if o.openMonitor && s.MonitorPort() > 0 {
		url := fmt.Sprintf("http://localhost:%d", s.MonitorPort())
		if err := browser.OpenURL(url); err != nil {
			logrus.WithError(err).Warn("failed to open the monitor")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	now, err := s.Run(ctx, timing.VTimeInSec(o.until))
	if err != nil {
		return err
	}

	counter := s.GetTransitionCounter()
	fmt.Fprintf(cmd.ErrOrStderr(), "Simulation stopped at %s after %d cycles\n",
		strconv.FormatFloat(float64(now), 'g', -1, 64),
		s.GetRunner().Cycles())
	fmt.Fprintf(cmd.ErrOrStderr(),
		"Transitions: %d internal, %d external, %d confluent; %d deliveries\n",
		counter.KindTotal(engine.Internal),
		counter.KindTotal(engine.External),
		counter.KindTotal(engine.Confluent),
		counter.TotalDeliveries())

	return nil
}

func (o *runOptions) builder(
	cmd *cobra.Command,
	categories tracing.Category,
) simulation.Builder {
	b := simulation.MakeBuilder()

	switch {
	case o.monitorPort > 0:
		b = b.WithMonitorPort(o.monitorPort)
	case !o.monitor && !o.openMonitor:
		b = b.WithoutMonitoring()
	}

	if o.traceDB == "" {
		b = b.WithoutRecording()
	} else {
		b = b.WithOutputFileName(strings.TrimSuffix(o.traceDB, ".sqlite3"))
	}

	if categories != 0 {
		b = b.WithTraceWriter(cmd.OutOrStdout(), categories)
	}

	if o.parallel {
		b = b.WithParallelEngine().WithWorkers(o.workers)
	}

	return b
}
