package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStageRunnerSuccess(t *testing.T) {
	runner := &StageRunner{}
	stage := Stage{ID: "hello", Run: "echo hello world", Workdir: t.TempDir()}

	result := runner.Run(context.Background(), stage)

	if result.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", result.Status, result.Error)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Output, "hello world") {
		t.Errorf("expected captured output, got %q", result.Output)
	}
}

func TestStageRunnerPropagatesExitCode(t *testing.T) {
	runner := &StageRunner{}
	stage := Stage{ID: "boom", Run: "echo diagnostics >&2; exit 7", Workdir: t.TempDir()}

	result := runner.Run(context.Background(), stage)

	if result.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if result.ExitCode != 7 {
		t.Errorf("expected exit code 7, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Output, "diagnostics") {
		t.Errorf("expected stderr captured, got %q", result.Output)
	}

	var stageErr *StageError
	if !errors.As(result.Error, &stageErr) {
		t.Fatalf("expected *StageError, got %T", result.Error)
	}
	if stageErr.StageID != "boom" || stageErr.ExitCode != 7 {
		t.Errorf("unexpected stage error: %+v", stageErr)
	}
}

func TestStageRunnerEnv(t *testing.T) {
	runner := &StageRunner{}
	stage := Stage{
		ID:      "env",
		Run:     `echo "lang=$DATASET_LANG"`,
		Env:     map[string]string{"DATASET_LANG": "en"},
		Workdir: t.TempDir(),
	}

	result := runner.Run(context.Background(), stage)

	if result.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", result.Status, result.Error)
	}
	if !strings.Contains(result.Output, "lang=en") {
		t.Errorf("expected stage env visible to command, got %q", result.Output)
	}
}

func TestStageRunnerWorkdir(t *testing.T) {
	dir := t.TempDir()
	runner := &StageRunner{}
	stage := Stage{ID: "pwd", Run: "pwd", Workdir: dir}

	result := runner.Run(context.Background(), stage)

	if result.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", result.Status, result.Error)
	}
	if !strings.Contains(result.Output, dir) {
		t.Errorf("expected command to run in %s, got %q", dir, result.Output)
	}
}

func TestStageRunnerInterrupted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	runner := &StageRunner{}
	stage := Stage{ID: "slow", Run: "sleep 30", Workdir: t.TempDir()}

	start := time.Now()
	result := runner.Run(ctx, stage)

	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation did not kill the child process")
	}
	if result.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !errors.Is(result.Error, ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", result.Error)
	}
	if result.ExitCode != 130 {
		t.Errorf("expected exit code 130, got %d", result.ExitCode)
	}
}
