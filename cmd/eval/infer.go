package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/cotbench/internal/inference"
	"github.com/stellarlinkco/cotbench/internal/llm"
)

type inferOptions struct {
	input    string
	output   string
	provider string
	model    string
	key      string
}

func newInferCmd(st *cliState) *cobra.Command {
	var opts inferOptions

	cmd := &cobra.Command{
		Use:     "infer",
		Short:   "Run model inference over benchmark entries",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "path to the benchmark JSONL file")
	cmd.Flags().StringVar(&opts.output, "output", "", "path for the augmented results JSONL file")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "provider name (overrides config)")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name (overrides config)")
	cmd.Flags().StringVar(&opts.key, "prediction-key", "", "output field name (default <provider>_prediction)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runInfer(cmd *cobra.Command, st *cliState, opts *inferOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("infer: missing config (internal error)")
	}

	provider, err := llm.NewFromConfig(st.cfg, opts.provider, opts.model)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &inference.Runner{
		Provider:      provider,
		PredictionKey: opts.key,
		Progress:      cmd.ErrOrStderr(),
	}

	stats, err := r.Run(ctx, opts.input, opts.output)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Inference complete: entries=%d errors=%d output=%s\n",
		stats.Total, stats.Errored, opts.output)
	return nil
}
