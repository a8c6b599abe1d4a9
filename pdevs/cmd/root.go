// Package cmd provides the command-line interface of pdevs.
package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sarchlab/pdevs/models/basic"
	"github.com/sarchlab/pdevs/netconf"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that provide defaults for flags.
const (
	EnvLogLevel    = "PDEVS_LOG_LEVEL"
	EnvMonitorPort = "PDEVS_MONITOR_PORT"
	EnvTraceDB     = "PDEVS_TRACE_DB"
)

var envFlags = map[string]string{
	"log-level":    EnvLogLevel,
	"monitor-port": EnvMonitorPort,
	"trace-db":     EnvTraceDB,
}

func newRootCmd() *cobra.Command {
	var (
		envFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "pdevs",
		Short: "Run and check P-DEVS networks.",
		Long: `pdevs runs networks of P-DEVS models described in YAML or ` +
			`TOML files, and checks their descriptions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}

			if err := applyEnv(cmd); err != nil {
				return err
			}

			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}

			logrus.SetLevel(level)

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"File to load environment variables from, if it exists")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(
		newRunCmd(), newValidateCmd(), newKindsCmd(), newTraceCmd())

	return rootCmd
}

// Execute runs the command line and exits through atexit, so that recorders
// are flushed.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// applyEnv sets the flags that are not given on the command line from the
// environment.
func applyEnv(cmd *cobra.Command) error {
	for name, env := range envFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}

		value := os.Getenv(env)
		if value == "" {
			continue
		}

		if err := cmd.Flags().Set(name, value); err != nil {
			return err
		}
	}

	return nil
}

func newRegistry() *netconf.Registry {
	reg := netconf.NewRegistry()
	basic.Register(reg)

	return reg
}

func loadNetwork(path string) (*modeling.Coupled, error) {
	network, err := netconf.LoadFile(path)
	if err != nil {
		return nil, err
	}

	return network.Build(newRegistry())
}
