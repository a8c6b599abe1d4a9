package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/pdevs/datarecording"
	"github.com/sarchlab/pdevs/tracing"
	"github.com/spf13/cobra"
)

type traceOptions struct {
	model    string
	routings bool
	limit    int
}

func newTraceCmd() *cobra.Command {
	o := &traceOptions{}

	traceCmd := &cobra.Command{
		Use:   "trace <db>",
		Short: "Print the transitions or the deliveries of a recorded run",
		Long: `Print what a run recorded with --trace-db, one record per ` +
			`line in the order the records happened.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTrace(cmd, args[0], o)
		},
	}

	traceCmd.Flags().StringVarP(&o.model, "model", "m", "",
		"Full name of the model to print, such as Top.C3.C2.Acc")
	traceCmd.Flags().BoolVar(&o.routings, "routings", false,
		"Print the deliveries to the model instead of its transitions")
	traceCmd.Flags().IntVar(&o.limit, "limit", 0,
		"Print at most this many records, 0 for all")

	return traceCmd
}

func printTrace(cmd *cobra.Command, path string, o *traceOptions) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	reader := datarecording.NewReader(path)
	defer reader.Close()

	traces := tracing.NewTraceReader(reader)
	q := tracing.TraceQuery{Model: o.model, Limit: o.limit}
	out := cmd.OutOrStdout()

	var shown, total int

	if o.routings {
		routings, n, err := traces.Routings(cmd.Context(), q)
		if err != nil {
			return err
		}

		for _, r := range routings {
			fmt.Fprintf(out, "%s\t%s -> %s\t%s\n",
				formatRecordTime(r.Time), r.Src, r.Dst, r.Value)
		}

		shown, total = len(routings), n
	} else {
		transitions, n, err := traces.Transitions(cmd.Context(), q)
		if err != nil {
			return err
		}

		for _, t := range transitions {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
				formatRecordTime(t.Time), t.Model, t.Kind, t.State)
		}

		shown, total = len(transitions), n
	}

	if shown < total {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d records shown\n", shown, total)
	}

	return nil
}

func formatRecordTime(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}
