package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"sentpipe/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sentpipe",
		Short: "Reproducible dataset-build pipeline orchestrator",
		Long: `sentpipe builds sentence-classification datasets by orchestrating
external commands (download, extract, split, prune, convert) as a staged
pipeline with artifact fingerprinting, so re-runs after a failure resume
instead of redoing completed work.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}

func runCmd() *cobra.Command {
	var opts cmd.RunOptions

	c := &cobra.Command{
		Use:   "run [manifest]",
		Short: "Execute a pipeline manifest",
		Long: `Executes the stages of a pipeline manifest in dependency order.

Stages whose recorded output artifacts are still valid are skipped, so a
re-run after a partial failure resumes where the previous run stopped.
The exit code is 0 on success, the failing stage's exit code on stage
failure, and 2 for orchestration errors such as a cyclic stage graph.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			manifestPath := "sentpipe.yml"
			if len(args) > 0 {
				manifestPath = args[0]
			}

			// An interrupt kills the running stage's process; nothing is
			// recorded for it, so the next run treats it as stale.
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmd.Run(ctx, manifestPath, opts)
		},
	}

	c.Flags().StringVar(&opts.FromStage, "from-stage", "", "resume starting at this stage, skipping earlier ones")
	c.Flags().BoolVar(&opts.Force, "force", false, "ignore recorded artifacts and rerun every stage")
	c.Flags().BoolVar(&opts.Quiet, "quiet", false, "don't stream stage output to the terminal")

	return c
}

func historyCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.History(limit)
		},
	}

	c.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return c
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its stage executions",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			runID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID '%s'", args[0])
			}
			return cmd.Show(runID)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and dataset scheduler",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Serve()
		},
	}
}
