package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/cotbench/internal/dataset"
	"github.com/stellarlinkco/cotbench/internal/history"
	"github.com/stellarlinkco/cotbench/internal/scoring"
)

type evalOptions struct {
	predictions string
	benchmark   string
	output      string
	save        bool
}

func newFirstErrorCmd(st *cliState) *cobra.Command {
	return newEvalCmd(st, scoring.TaskFirstError, "first-error",
		"Score first-error-detection predictions against a benchmark")
}

func newVQACmd(st *cliState) *cobra.Command {
	return newEvalCmd(st, scoring.TaskVQA, "vqa",
		"Score VQA predictions against a benchmark")
}

func newEvalCmd(st *cliState, task scoring.Task, use, short string) *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    cobra.NoArgs,
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, st, task, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.predictions, "predictions", "", "path to the model's prediction JSONL file")
	cmd.Flags().StringVar(&opts.benchmark, "benchmark", "", "path to the benchmark JSONL file")
	cmd.Flags().StringVar(&opts.output, "output", "", "output format: table|json")
	cmd.Flags().BoolVar(&opts.save, "save", false, "append the summary to the evaluation history")
	_ = cmd.MarkFlagRequired("predictions")
	_ = cmd.MarkFlagRequired("benchmark")

	return cmd
}

func runEvaluation(cmd *cobra.Command, st *cliState, task scoring.Task, opts *evalOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("evaluate: missing config (internal error)")
	}

	format, err := resolveOutputFormat(opts.output, st.cfg.Evaluation.OutputFormat)
	if err != nil {
		return err
	}

	predictions, err := dataset.LoadFile(opts.predictions)
	if err != nil {
		return err
	}
	benchmark, err := dataset.LoadFile(opts.benchmark)
	if err != nil {
		return err
	}

	sum, err := scoring.Evaluate(predictions, benchmark, task, scoring.Options{
		MismatchLimit: st.cfg.Evaluation.MismatchLimit,
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), FormatSummary(sum, format))

	if opts.save {
		entry := &history.Entry{
			Timestamp:   time.Now().UTC(),
			Task:        task,
			Predictions: opts.predictions,
			Benchmark:   opts.benchmark,
			Summary:     sum,
		}
		if err := history.Append(historyPath(st), entry); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved to history: %s\n", historyPath(st))
	}

	return nil
}

func historyPath(st *cliState) string {
	if st != nil && st.cfg != nil {
		if p := strings.TrimSpace(st.cfg.History.Path); p != "" {
			return p
		}
	}
	return history.DefaultPath
}
