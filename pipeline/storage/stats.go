package storage

import (
	"database/sql"
	"fmt"
)

// PipelineRunStats represents the latest runs grouped by pipeline
type PipelineRunStats struct {
	PipelineName string  `json:"pipeline_name"`
	RunID        int     `json:"run_id"`
	RunUID       string  `json:"run_uid"`
	Status       string  `json:"status"`
	Duration     *string `json:"duration,omitempty"`
	StartedAt    string  `json:"started_at"`
	StageCount   int     `json:"stage_count"`
}

// GetLatestRunsByPipeline returns the latest runs for each pipeline
func (s *Storage) GetLatestRunsByPipeline(limit int) ([]PipelineRunStats, error) {
	// Simple query without window functions for better SQLite compatibility
	query := `
		SELECT
			r.pipeline_name,
			r.id,
			r.uid,
			r.status,
			r.duration,
			r.started_at,
			COUNT(se.id) as stage_count
		FROM runs r
		LEFT JOIN stage_executions se ON r.id = se.run_id
		GROUP BY r.id, r.pipeline_name, r.uid, r.status, r.duration, r.started_at
		ORDER BY r.pipeline_name, r.started_at DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}
	defer rows.Close()

	// Group by pipeline and limit per pipeline
	pipelineCounts := make(map[string]int)
	stats := make([]PipelineRunStats, 0)

	for rows.Next() {
		var stat PipelineRunStats
		var duration sql.NullString

		err := rows.Scan(
			&stat.PipelineName,
			&stat.RunID,
			&stat.RunUID,
			&stat.Status,
			&duration,
			&stat.StartedAt,
			&stat.StageCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run stats: %w", err)
		}

		if pipelineCounts[stat.PipelineName] >= limit {
			continue
		}
		pipelineCounts[stat.PipelineName]++

		if duration.Valid {
			durationStr := duration.String
			stat.Duration = &durationStr
		}

		stats = append(stats, stat)
	}

	return stats, rows.Err()
}
