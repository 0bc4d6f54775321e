package pipeline

// StageStatus is the per-run execution state of a stage.
//
// Transitions: pending -> skipped, or pending -> running -> succeeded/failed.
// skipped, succeeded and failed are terminal within a run.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusRunning   StageStatus = "running"
	StatusSucceeded StageStatus = "succeeded"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
)

// Terminal reports whether a stage in this status may still transition.
func (s StageStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// canTransition encodes the per-stage state machine.
func canTransition(from, to StageStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusSkipped
	case StatusRunning:
		return to == StatusSucceeded || to == StatusFailed
	}
	return false
}
