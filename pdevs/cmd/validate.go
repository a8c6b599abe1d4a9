package cmd

import (
	"fmt"

	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a network description and list its models",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := loadNetwork(args[0])
			if err != nil {
				return err
			}

			runner, err := engine.NewRunner(top)
			if err != nil {
				return err
			}

			for _, name := range runner.Models() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the kinds of models that networks can use",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, kind := range newRegistry().Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), kind)
			}
		},
	}
}
