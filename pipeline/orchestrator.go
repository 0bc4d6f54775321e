package pipeline

import (
	"context"
	"fmt"
	"time"

	"sentpipe/pipeline/storage"
)

// ExecuteFile loads a manifest and executes the pipeline it defines
func ExecuteFile(ctx context.Context, manifestPath string, opts ExecuteOptions) (*PipelineOutcome, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	return Execute(ctx, m, opts)
}

// Execute runs the pipeline's stages sequentially in manifest order.
//
// The stage graph is validated before anything executes. Each stage is
// visited exactly once: skipped when its artifacts are up to date (unless
// Force), executed otherwise. The first failure halts the run — later
// stages stay pending and never execute. Fingerprints are recorded only
// after a stage fully succeeds, so a failed or interrupted run resumes at
// the stage that did not finish.
func Execute(ctx context.Context, m *Manifest, opts ExecuteOptions) (*PipelineOutcome, error) {
	startTime := time.Now()

	if err := ValidateGraph(m); err != nil {
		return nil, err
	}

	fromIndex := 0
	if opts.FromStage != "" {
		found := false
		for i, s := range m.Stages {
			if s.ID == opts.FromStage {
				fromIndex = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: '%s'", ErrUnknownStage, opts.FromStage)
		}
	}

	statuses := make(map[string]StageStatus, len(m.Stages))
	for _, s := range m.Stages {
		statuses[s.ID] = StatusPending
	}

	outcome := &PipelineOutcome{
		Status: "running",
		Stages: make([]StageResult, 0, len(m.Stages)),
	}

	// Create run in database if storage is provided
	var run *storage.Run
	if opts.Storage != nil {
		var err error
		run, err = opts.Storage.CreateRun(m.Path, m.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		outcome.RunID = run.ID
		outcome.RunUID = run.UID
	}

	if opts.Broker != nil {
		opts.Broker.Broadcast("run_started", map[string]interface{}{
			"run_id":   outcome.RunID,
			"run_uid":  outcome.RunUID,
			"pipeline": m.Name,
		})
	}

	artifacts := NewArtifactStore(opts.Storage)
	runner := &StageRunner{StreamToTerminal: opts.StreamToTerminal}

	fail := func(result StageResult, err error) (*PipelineOutcome, error) {
		outcome.Status = "failed"
		outcome.FailedStage = result.StageID
		outcome.Duration = time.Since(startTime)
		outcome.Error = err
		if opts.Storage != nil {
			_ = opts.Storage.UpdateRunStatus(outcome.RunID, "failed", outcome.Duration)
		}
		if opts.Broker != nil {
			opts.Broker.Broadcast("run_finished", map[string]interface{}{
				"run_id":       outcome.RunID,
				"run_uid":      outcome.RunUID,
				"pipeline":     m.Name,
				"status":       "failed",
				"failed_stage": result.StageID,
			})
		}
		return outcome, err
	}

	for i, stage := range m.Stages {
		// Decide whether this stage can be skipped before touching it.
		skip := false
		reason := ""
		switch {
		case i < fromIndex:
			skip = true
			reason = "before --from-stage"
		case opts.Force || stage.ID == opts.FromStage:
			// Forced and resume-target stages always run.
		default:
			upToDate, err := artifacts.IsUpToDate(stage)
			if err != nil {
				return nil, fmt.Errorf("failed to check artifacts for stage '%s': %w", stage.ID, err)
			}
			skip = upToDate
			reason = "up to date"
		}

		if skip {
			if err := transition(statuses, stage.ID, StatusSkipped); err != nil {
				return nil, err
			}
			result := StageResult{StageID: stage.ID, Status: StatusSkipped}
			outcome.Stages = append(outcome.Stages, result)

			if opts.StreamToTerminal {
				fmt.Printf("↷ Skipped: %s (%s)\n", stage.DisplayName(), reason)
			}
			if opts.Storage != nil {
				stageExec, err := opts.Storage.CreateStageExecution(outcome.RunID, stage.ID, stage.DisplayName(), stage.Run, string(StatusSkipped))
				if err != nil {
					return nil, fmt.Errorf("failed to create stage execution: %w", err)
				}
				_ = opts.Storage.UpdateStageExecution(stageExec.ID, string(StatusSkipped), "", 0)
			}
			broadcastStage(opts, outcome, stage.ID, StatusSkipped)
			continue
		}

		if opts.Force {
			if err := artifacts.Invalidate(stage); err != nil {
				return nil, fmt.Errorf("failed to invalidate artifacts for stage '%s': %w", stage.ID, err)
			}
		}

		if err := transition(statuses, stage.ID, StatusRunning); err != nil {
			return nil, err
		}
		if opts.StreamToTerminal {
			fmt.Println("→", stage.DisplayName())
		}

		var stageExec *storage.StageExecution
		if opts.Storage != nil {
			var err error
			stageExec, err = opts.Storage.CreateStageExecution(outcome.RunID, stage.ID, stage.DisplayName(), stage.Run, string(StatusRunning))
			if err != nil {
				return nil, fmt.Errorf("failed to create stage execution: %w", err)
			}
		}
		broadcastStage(opts, outcome, stage.ID, StatusRunning)

		result := runner.Run(ctx, stage)

		// A zero exit status is only a success if the declared outputs
		// actually appeared; record fingerprints once they are verified.
		if result.Status == StatusSucceeded {
			if err := artifacts.Record(outcome.RunID, stage); err != nil {
				result.Status = StatusFailed
				result.ExitCode = 1
				result.Error = err
			}
		}

		if err := transition(statuses, stage.ID, result.Status); err != nil {
			return nil, err
		}
		outcome.Stages = append(outcome.Stages, result)

		if opts.Storage != nil && stageExec != nil {
			_ = opts.Storage.UpdateStageExecution(stageExec.ID, string(result.Status), result.Output, result.Duration)
		}
		broadcastStage(opts, outcome, stage.ID, result.Status)

		if result.Status == StatusFailed {
			if opts.StreamToTerminal {
				fmt.Println("❌ Stage failed:", result.Error)
			}
			return fail(result, result.Error)
		}

		if opts.StreamToTerminal {
			fmt.Println("✅ Done:", stage.DisplayName())
		}
	}

	outcome.Status = "success"
	outcome.Duration = time.Since(startTime)
	outcome.Records = countFinalRecords(m, opts)

	if opts.Storage != nil {
		if err := opts.Storage.UpdateRunStatus(outcome.RunID, "success", outcome.Duration); err != nil {
			return nil, fmt.Errorf("failed to update run status: %w", err)
		}
	}
	if opts.Broker != nil {
		opts.Broker.Broadcast("run_finished", map[string]interface{}{
			"run_id":   outcome.RunID,
			"run_uid":  outcome.RunUID,
			"pipeline": m.Name,
			"status":   "success",
			"records":  outcome.Records,
		})
	}

	if opts.StreamToTerminal {
		fmt.Printf("\n🏁 All stages finished. Dataset records: %d\n", outcome.Records)
	}

	return outcome, nil
}

// transition moves a stage through its state machine, rejecting illegal
// moves (a terminal stage must never change within one run).
func transition(statuses map[string]StageStatus, stageID string, to StageStatus) error {
	from := statuses[stageID]
	if !canTransition(from, to) {
		return fmt.Errorf("stage '%s': illegal transition %s -> %s", stageID, from, to)
	}
	statuses[stageID] = to
	return nil
}

// countFinalRecords reads the line count of the final stage's first output
// artifact. Best effort: a pipeline whose last stage has no outputs reports 0.
func countFinalRecords(m *Manifest, opts ExecuteOptions) int {
	final := m.Stages[len(m.Stages)-1]
	if len(final.Outputs) == 0 {
		return 0
	}
	count, err := CountLines(final.ResolvePath(final.Outputs[0]))
	if err != nil {
		if opts.StreamToTerminal {
			fmt.Printf("⚠️  Could not count records in %s: %v\n", final.Outputs[0], err)
		}
		return 0
	}
	return count
}

func broadcastStage(opts ExecuteOptions, outcome *PipelineOutcome, stageID string, status StageStatus) {
	if opts.Broker == nil {
		return
	}
	event := "stage_finished"
	if status == StatusRunning {
		event = "stage_started"
	}
	opts.Broker.Broadcast(event, map[string]interface{}{
		"run_id":  outcome.RunID,
		"run_uid": outcome.RunUID,
		"stage":   stageID,
		"status":  string(status),
	})
}
