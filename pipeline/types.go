package pipeline

import (
	"time"

	"sentpipe/events"
	"sentpipe/pipeline/storage"
)

// PipelineOutcome is the result of executing a pipeline
type PipelineOutcome struct {
	Status      string        `json:"status"` // "success" or "failed"
	RunID       int           `json:"run_id"`
	RunUID      string        `json:"run_uid"`
	Stages      []StageResult `json:"stages"`
	Duration    time.Duration `json:"duration"`
	FailedStage string        `json:"failed_stage,omitempty"`
	// Records is the line count of the final stage's first output artifact,
	// reported on success as the end-of-run dataset size.
	Records int   `json:"records"`
	Error   error `json:"error,omitempty"`
}

// StageResult is the outcome of a single stage within a run
type StageResult struct {
	StageID  string        `json:"stage_id"`
	Status   StageStatus   `json:"status"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
	Error    error         `json:"error,omitempty"`
}

// ExecuteOptions configures how the pipeline should be executed
type ExecuteOptions struct {
	Storage          *storage.Storage // Optional storage for database persistence
	Broker           *events.Broker   // Optional broker for run/stage events
	StreamToTerminal bool             // If true, also stream stage output to terminal
	Force            bool             // Ignore artifact fingerprints and rerun every stage
	FromStage        string           // Resume at this stage, skipping everything before it
}
