package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordArtifact inserts or replaces the fingerprint record for an artifact path.
// mtime is stored as unix nanoseconds so staleness comparisons keep full precision.
func (s *Storage) RecordArtifact(path, hash string, size int64, mtime time.Time, stageID string, runID int) error {
	_, err := s.db.Exec(
		`INSERT INTO artifacts (path, hash, size, mtime, stage_id, run_id, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   hash = excluded.hash,
		   size = excluded.size,
		   mtime = excluded.mtime,
		   stage_id = excluded.stage_id,
		   run_id = excluded.run_id,
		   recorded_at = excluded.recorded_at`,
		path, hash, size, mtime.UnixNano(), stageID, runID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves the fingerprint record for a path, or nil if none exists
func (s *Storage) GetArtifact(path string) (*Artifact, error) {
	var a Artifact
	var mtimeNano int64

	err := s.db.QueryRow(
		"SELECT id, path, hash, size, mtime, stage_id, run_id, recorded_at FROM artifacts WHERE path = ?",
		path,
	).Scan(&a.ID, &a.Path, &a.Hash, &a.Size, &mtimeNano, &a.StageID, &a.RunID, &a.RecordedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	a.MTime = time.Unix(0, mtimeNano)
	return &a, nil
}

// GetArtifacts retrieves all recorded artifacts, most recent first
func (s *Storage) GetArtifacts(limit int) ([]*Artifact, error) {
	rows, err := s.db.Query(
		"SELECT id, path, hash, size, mtime, stage_id, run_id, recorded_at FROM artifacts ORDER BY recorded_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		var a Artifact
		var mtimeNano int64

		err := rows.Scan(&a.ID, &a.Path, &a.Hash, &a.Size, &mtimeNano, &a.StageID, &a.RunID, &a.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}

		a.MTime = time.Unix(0, mtimeNano)
		artifacts = append(artifacts, &a)
	}

	return artifacts, rows.Err()
}

// DeleteArtifact removes the fingerprint record for a path. Used by --force
// style rebuilds where recorded state should not survive.
func (s *Storage) DeleteArtifact(path string) error {
	_, err := s.db.Exec("DELETE FROM artifacts WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}
