package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"

	"sentpipe/events"
	"sentpipe/pipeline"
)

// RunOptions are the flags of the 'run' command
type RunOptions struct {
	FromStage string // resume at this stage, skipping everything before it
	Force     bool   // ignore recorded artifacts and rerun every stage
	Quiet     bool   // don't stream stage output to the terminal
}

// Run executes the 'run' command
func Run(ctx context.Context, manifestPath string, opts RunOptions) error {
	// Load .env file if it exists (stage commands often need its variables)
	_ = godotenv.Load()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	outcome, err := pipeline.ExecuteFile(ctx, manifestPath, pipeline.ExecuteOptions{
		Storage:          store,
		Broker:           events.GetBroker(),
		StreamToTerminal: !opts.Quiet,
		Force:            opts.Force,
		FromStage:        opts.FromStage,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInterrupted) {
			fmt.Println("\n🛑 Interrupted. Re-run to resume at the unfinished stage.")
		}
		return err
	}

	fmt.Printf("\n📊 Run %d (%s) | Status: %s | Duration: %s | Records: %d\n",
		outcome.RunID, outcome.RunUID, outcome.Status, outcome.Duration, outcome.Records)

	return nil
}

// ExitCode maps a command error to the process exit code: the failing
// stage's own exit code for stage failures, 130 for interruption, and the
// reserved code 2 for orchestration errors (bad graph, I/O, storage).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) && stageErr.ExitCode != 0 {
		return stageErr.ExitCode
	}
	if errors.Is(err, pipeline.ErrInterrupted) {
		return 130
	}
	return 2
}
