package storage

import "time"

// Run represents one pipeline execution
type Run struct {
	ID           int        `json:"id"`
	UID          string     `json:"uid"`
	Status       string     `json:"status"` // "running", "success", "failed"
	ManifestPath string     `json:"manifest_path"`
	PipelineName string     `json:"pipeline_name"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Duration     *string    `json:"duration,omitempty"`
}

// StageExecution represents execution of a single stage within a run
type StageExecution struct {
	ID         int        `json:"id"`
	RunID      int        `json:"run_id"`
	StageID    string     `json:"stage_id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"` // "running", "succeeded", "failed", "skipped"
	Command    string     `json:"command"`
	Output     string     `json:"output"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Duration   *string    `json:"duration,omitempty"`
}

// Artifact is a durable fingerprint record for a stage output file,
// persisted so later runs can decide whether the producing stage is stale
type Artifact struct {
	ID         int       `json:"id"`
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	MTime      time.Time `json:"mtime"`
	StageID    string    `json:"stage_id"`
	RunID      int       `json:"run_id"`
	RecordedAt time.Time `json:"recorded_at"`
}
