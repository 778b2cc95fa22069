package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/cotbench/internal/download"
)

type downloadOptions struct {
	input    string
	dir      string
	noResume bool
}

func newDownloadCmd(st *cliState) *cobra.Command {
	var opts downloadOptions

	cmd := &cobra.Command{
		Use:     "download",
		Short:   "Download the images a dataset references",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "path to the dataset JSONL file")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "output directory (overrides config)")
	cmd.Flags().BoolVar(&opts.noResume, "no-resume", false, "re-download files that already exist")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runDownload(cmd *cobra.Command, st *cliState, opts *downloadOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("download: missing config (internal error)")
	}

	dir := opts.dir
	if dir == "" {
		dir = st.cfg.Download.Dir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := download.Run(ctx, opts.input, download.Options{
		Dir:      dir,
		Resume:   !opts.noResume,
		Timeout:  st.cfg.Download.Timeout,
		Retries:  st.cfg.Download.Retries,
		Delay:    st.cfg.Download.Delay,
		Progress: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Download summary: total=%d succeeded=%d failed=%d skipped=%d\n",
		stats.Total, stats.Succeeded, stats.Failed, stats.Skipped)
	if stats.Total > 0 {
		fmt.Fprintf(out, "Success rate: %.1f%%\n", float64(stats.Succeeded)/float64(stats.Total)*100)
	}
	return nil
}
