package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/gckit/internal/script"
)

var (
	runStatsAfter bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().BoolVar(&runStatsAfter, "stats", false, "Print heap statistics after the script")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a mutator script against a fresh heap",
		Long: `The run command executes a mutator script line by line against a
fresh heap. Use "-" to read the script from standard input.

Example script:
  alloc node 64          # bind "node" to a new 64-byte block
  push node              # keep it on the machine stack
  collect
  expect node live
  pop
  collect
  expect node dead

Example:
  gcctl run scenario.gc
  gcctl run - < scenario.gc
  gcctl run scenario.gc --stats --config heap.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(args)
		},
	}
	return cmd
}

func runScript(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var src io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		src = f
	}

	h, err := newHeap(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	var out io.Writer = io.Discard
	if !quiet {
		out = stdout()
	}

	printVerbose("Running script: %s\n", args[0])
	if err := script.New(h, out).Run(src); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if runStatsAfter {
		if jsonOut {
			return printJSON(newStatsReport(h))
		}
		h.PrintStats(out)
	}
	return nil
}
