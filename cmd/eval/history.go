package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/cotbench/internal/history"
)

type historyOptions struct {
	limit int
}

func newHistoryCmd(st *cliState) *cobra.Command {
	var opts historyOptions

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List saved evaluation runs",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, st, &opts)
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", 0, "show only the most recent N runs (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, st *cliState, opts *historyOptions) error {
	entries, err := history.List(historyPath(st))
	if err != nil {
		return err
	}
	if opts.limit > 0 && len(entries) > opts.limit {
		entries = entries[len(entries)-opts.limit:]
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No saved evaluation runs.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTASK\tACCURACY\tCORRECT/VALID\tPROCESSED\tMISSING\tPREDICTIONS")
	for _, e := range entries {
		if e == nil || e.Summary == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%d/%d\t%d\t%d\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Task,
			e.Summary.OverallAccuracy,
			e.Summary.Correct,
			e.Summary.Valid,
			e.Summary.Processed,
			e.Summary.Missing,
			e.Predictions,
		)
	}
	return tw.Flush()
}
