package pipeline

import (
	"fmt"
	"os"

	"sentpipe/pipeline/storage"
)

// ArtifactStore decides whether a stage's declared outputs are still valid
// and persists their fingerprints after a successful run. Fingerprints live
// in the same SQLite database as run history, so incremental re-execution
// survives between invocations.
//
// With a nil storage backend nothing is persisted: every stage is considered
// stale and Record only verifies that declared outputs exist.
type ArtifactStore struct {
	store *storage.Storage
}

// NewArtifactStore creates an artifact store backed by the given storage.
func NewArtifactStore(store *storage.Storage) *ArtifactStore {
	return &ArtifactStore{store: store}
}

// IsUpToDate reports whether the stage can be skipped.
//
// True only if the stage declares at least one output, every output exists
// and matches its recorded fingerprint, every input exists, and no input is
// newer than any output. A stage with no declared outputs is never up to
// date: it exists for its side effects and must always run.
//
// A missing file on either side means stale, never an error; errors are
// reserved for storage and I/O failures.
func (a *ArtifactStore) IsUpToDate(stage Stage) (bool, error) {
	if len(stage.Outputs) == 0 || a.store == nil {
		return false, nil
	}

	var oldestOutput Fingerprint
	for i, out := range stage.Outputs {
		path := stage.ResolvePath(out)
		current, err := ComputeFingerprint(path)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}

		recorded, err := a.store.GetArtifact(path)
		if err != nil {
			return false, err
		}
		if recorded == nil {
			return false, nil
		}
		if recorded.Hash != current.Hash || recorded.Size != current.Size {
			return false, nil
		}

		if i == 0 || current.MTime.Before(oldestOutput.MTime) {
			oldestOutput = current
		}
	}

	for _, in := range stage.Inputs {
		path := stage.ResolvePath(in)
		current, err := ComputeFingerprint(path)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
		if current.MTime.After(oldestOutput.MTime) {
			return false, nil
		}
	}

	return true, nil
}

// Record verifies that every declared output exists and persists its
// fingerprint. Called only after the stage's command exited 0 — never on
// failure or interruption, so an interrupted stage stays stale.
func (a *ArtifactStore) Record(runID int, stage Stage) error {
	for _, out := range stage.Outputs {
		path := stage.ResolvePath(out)
		fp, err := ComputeFingerprint(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("stage '%s' output '%s': %w", stage.ID, out, ErrMissingArtifact)
			}
			return err
		}
		if a.store == nil {
			continue
		}
		if err := a.store.RecordArtifact(path, fp.Hash, fp.Size, fp.MTime, stage.ID, runID); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the recorded fingerprints for the stage's outputs.
// Forced reruns invalidate before executing so an interruption mid-rebuild
// cannot leave stale records that look up to date.
func (a *ArtifactStore) Invalidate(stage Stage) error {
	if a.store == nil {
		return nil
	}
	for _, out := range stage.Outputs {
		if err := a.store.DeleteArtifact(stage.ResolvePath(out)); err != nil {
			return err
		}
	}
	return nil
}
