package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sentpipe/events"
	"sentpipe/pipeline"
	"sentpipe/pipeline/storage"
)

// GetRuns returns all runs
func GetRuns(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		runs, err := store.GetRuns(100) // Limit to 100 most recent
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get runs: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)
	}
}

// GetRun returns a single run with its stage executions
func GetRun(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Parse run ID from URL: /api/runs/:id
		runID, ok := parseRunID(r.URL.Path)
		if !ok {
			http.Error(w, "Invalid run ID", http.StatusBadRequest)
			return
		}

		run, err := store.GetRun(runID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Run not found: %v", err), http.StatusNotFound)
			return
		}

		stages, err := store.GetStageExecutions(runID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get stages: %v", err), http.StatusInternalServerError)
			return
		}

		type RunResponse struct {
			Run    *storage.Run              `json:"run"`
			Stages []*storage.StageExecution `json:"stages"`
		}

		response := RunResponse{
			Run:    run,
			Stages: stages,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// GetRunStatus returns just the status of a run (lightweight for polling)
func GetRunStatus(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Parse run ID from URL: /api/runs/:id/status
		runID, ok := parseRunID(r.URL.Path)
		if !ok {
			http.Error(w, "Invalid run ID", http.StatusBadRequest)
			return
		}

		run, err := store.GetRun(runID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Run not found: %v", err), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     run.ID,
			"uid":    run.UID,
			"status": run.Status,
		})
	}
}

// GetArtifacts returns the recorded artifact fingerprints
func GetArtifacts(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		artifacts, err := store.GetArtifacts(500)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get artifacts: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(artifacts)
	}
}

// GetDatasets returns the configured dataset pipelines with validity info
func GetDatasets(config *pipeline.DatasetsConfig, baseDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		type DatasetInfo struct {
			pipeline.Dataset
			Valid bool   `json:"valid"`
			Error string `json:"error,omitempty"`
		}

		infos := make([]DatasetInfo, 0, len(config.Datasets))
		for _, d := range config.Datasets {
			info := DatasetInfo{Dataset: d, Valid: true}
			if err := d.Validate(baseDir); err != nil {
				info.Valid = false
				info.Error = err.Error()
			}
			infos = append(infos, info)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infos)
	}
}

// GetStats returns the latest runs per pipeline
func GetStats(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		stats, err := store.GetLatestRunsByPipeline(5)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get stats: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

// PostDatasetRun triggers a pipeline run for a dataset: /api/datasets/:name/run
func PostDatasetRun(store *storage.Storage, config *pipeline.DatasetsConfig, baseDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "Method not allowed",
			})
			return
		}

		pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(pathParts) < 4 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "Invalid path",
			})
			return
		}
		name := pathParts[2]

		dataset, err := config.GetDataset(name)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		var req struct {
			Force     bool   `json:"force"`
			FromStage string `json:"from_stage"`
		}
		// Body is optional; an empty body means a plain incremental run
		_ = json.NewDecoder(r.Body).Decode(&req)

		manifestPath := dataset.ManifestPath(baseDir)

		// Run asynchronously; clients follow progress via /api/events or polling
		go func() {
			_, err := pipeline.ExecuteFile(context.Background(), manifestPath, pipeline.ExecuteOptions{
				Storage:          store,
				Broker:           events.GetBroker(),
				StreamToTerminal: false,
				Force:            req.Force,
				FromStage:        req.FromStage,
			})
			if err != nil {
				fmt.Printf("❌ Run failed for %s: %v\n", name, err)
			}
		}()

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Run started",
			"dataset": name,
		})
	}
}

// parseRunID extracts the numeric run ID from /api/runs/:id[/...]
func parseRunID(urlPath string) (int, bool) {
	pathParts := strings.Split(strings.Trim(urlPath, "/"), "/")
	if len(pathParts) < 3 {
		return 0, false
	}
	runID, err := strconv.Atoi(pathParts[2])
	if err != nil {
		return 0, false
	}
	return runID, true
}
