package pipeline

import (
	"errors"
	"fmt"
)

// Graph validation errors. All are detected before any stage executes.
var (
	// ErrEmptyStages — the manifest defines no stages.
	ErrEmptyStages = errors.New("pipeline has no stages")

	// ErrEmptyStageID — a stage has no ID.
	ErrEmptyStageID = errors.New("stage has empty id")

	// ErrDuplicateStageID — two stages share the same ID.
	ErrDuplicateStageID = errors.New("duplicate stage id")

	// ErrUnknownDependency — a stage needs a stage that does not exist.
	ErrUnknownDependency = errors.New("stage needs unknown stage")

	// ErrSelfDependency — a stage needs itself.
	ErrSelfDependency = errors.New("stage needs itself")

	// ErrCyclicDependency — the stage graph contains a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrOrderViolation — a stage is listed before one of its dependencies.
	ErrOrderViolation = errors.New("stage listed before its dependency")

	// ErrDuplicateOutput — two stages declare the same output artifact.
	ErrDuplicateOutput = errors.New("output artifact declared by two stages")
)

// Execution errors.
var (
	// ErrMissingArtifact — a stage exited 0 but a declared output is absent.
	ErrMissingArtifact = errors.New("declared output artifact missing after stage succeeded")

	// ErrInterrupted — the run was cancelled while a stage was executing.
	ErrInterrupted = errors.New("pipeline interrupted")

	// ErrUnknownStage — a --from-stage id does not exist in the manifest.
	ErrUnknownStage = errors.New("unknown stage")
)

// GraphError wraps a graph validation failure with the offending stage.
type GraphError struct {
	StageID string
	Msg     string
	Err     error
}

func (e *GraphError) Error() string {
	if e.StageID != "" {
		return fmt.Sprintf("stage %s: %s", e.StageID, e.Msg)
	}
	return e.Msg
}

func (e *GraphError) Unwrap() error { return e.Err }

func graphErrorf(err error, stageID, format string, args ...any) error {
	return &GraphError{StageID: stageID, Msg: fmt.Sprintf(format, args...), Err: err}
}

// StageError is the failure of a single stage's external command.
// ExitCode carries the child process's exit status so the pipeline's own
// exit code can follow Unix conventions.
type StageError struct {
	StageID  string
	ExitCode int
	Output   string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage '%s' failed: %v", e.StageID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
