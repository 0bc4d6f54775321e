package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// StageRunner executes a single stage's external command
type StageRunner struct {
	StreamToTerminal bool // If true, also stream output to terminal
}

// Run spawns the stage command and waits for it to exit.
//
// Output is always captured; the child's exit code is propagated faithfully
// so the pipeline's own exit code can follow Unix conventions. No retries —
// retry policy belongs to whoever re-invokes the pipeline.
//
// If ctx is cancelled the child process is killed and the result reports
// the run as interrupted.
func (r *StageRunner) Run(ctx context.Context, stage Stage) StageResult {
	stageStart := time.Now()

	cmd := exec.CommandContext(ctx, "bash", "-c", stage.Run)
	cmd.Dir = stage.Workdir
	cmd.Env = os.Environ()
	for k, v := range stage.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	output, err := r.runCommand(cmd)
	duration := time.Since(stageStart)

	result := StageResult{
		StageID:  stage.ID,
		Output:   output,
		Duration: duration,
	}

	if ctx.Err() != nil {
		result.Status = StatusFailed
		result.ExitCode = 130
		result.Error = fmt.Errorf("stage '%s': %w", stage.ID, ErrInterrupted)
		return result
	}

	if err != nil {
		exitCode := 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		result.Status = StatusFailed
		result.ExitCode = exitCode
		result.Error = &StageError{StageID: stage.ID, ExitCode: exitCode, Output: output, Err: err}
		return result
	}

	result.Status = StatusSucceeded
	return result
}

// runCommand executes the command and captures its combined output
func (r *StageRunner) runCommand(cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	var stdoutWriters []io.Writer
	var stderrWriters []io.Writer

	// Always capture output
	stdoutWriters = append(stdoutWriters, &stdout)
	stderrWriters = append(stderrWriters, &stderr)

	// Optionally also stream to terminal
	if r.StreamToTerminal {
		stdoutWriters = append(stdoutWriters, os.Stdout)
		stderrWriters = append(stderrWriters, os.Stderr)
	}

	cmd.Stdout = io.MultiWriter(stdoutWriters...)
	cmd.Stderr = io.MultiWriter(stderrWriters...)

	err := cmd.Run()

	// Combine stdout and stderr
	combinedOutput := stdout.String() + stderr.String()
	if len(combinedOutput) > 0 && combinedOutput[len(combinedOutput)-1] != '\n' {
		combinedOutput += "\n"
	}

	return combinedOutput, err
}
