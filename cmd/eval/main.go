package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/cotbench/internal/config"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:           "cotbench",
		Short:         "Evaluate model predictions against reasoning and VQA benchmarks",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", st.configPath, "path to config file")

	root.AddCommand(newFirstErrorCmd(st))
	root.AddCommand(newVQACmd(st))
	root.AddCommand(newExtractCmd(st))
	root.AddCommand(newInferCmd(st))
	root.AddCommand(newDownloadCmd(st))
	root.AddCommand(newHistoryCmd(st))
	return root
}

func loadConfigPreRun(st *cliState) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(st.configPath)
		if err != nil {
			return err
		}
		st.cfg = cfg
		return nil
	}
}
