package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/cotbench/internal/dataset"
	"github.com/stellarlinkco/cotbench/internal/scoring"
)

type extractOptions struct {
	task        string
	predictions string
	id          string
}

// newExtractCmd is the single-record debugging surface: unlike the bulk
// scoring path it fails loudly when a record yields no answer, naming the
// record's keys.
func newExtractCmd(st *cliState) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Show the extracted answer for each prediction record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.task, "task", "", "task: first-error|vqa")
	cmd.Flags().StringVar(&opts.predictions, "predictions", "", "path to the model's prediction JSONL file")
	cmd.Flags().StringVar(&opts.id, "id", "", "only the record with this id")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("predictions")

	return cmd
}

func runExtract(cmd *cobra.Command, opts *extractOptions) error {
	task, err := scoring.ParseTask(opts.task)
	if err != nil {
		return err
	}

	records, err := dataset.LoadFile(opts.predictions)
	if err != nil {
		return err
	}

	cascade := task.Cascade()
	out := cmd.OutOrStdout()
	matched := false
	for _, rec := range records {
		id := "?"
		if v, ok := rec.ID(); ok {
			id = dataset.Stringify(v)
		}
		if opts.id != "" && id != opts.id {
			continue
		}
		matched = true

		value, err := cascade.ExtractStrict(rec)
		if err != nil {
			return fmt.Errorf("record id=%s: %w", id, err)
		}
		fmt.Fprintf(out, "%s\t%s\n", id, value)
	}

	if opts.id != "" && !matched {
		return fmt.Errorf("extract: no record with id %q in %s", opts.id, opts.predictions)
	}
	return nil
}
