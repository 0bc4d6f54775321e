package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"sentpipe/api"
	"sentpipe/pipeline"
)

// Serve starts the HTTP server with the dataset scheduler
func Serve() error {
	// Load .env file if it exists (ignore errors if it doesn't)
	_ = godotenv.Load()

	// Get port from environment variable or use default
	port := getEnv("PORT", "8080")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	// Load datasets configuration
	datasetsPath := filepath.Join(cwd, "datasets.yml")
	datasetsConfig, err := pipeline.LoadDatasets(datasetsPath)
	if err != nil {
		log.Printf("Warning: Failed to load datasets config: %v", err)
		datasetsConfig = &pipeline.DatasetsConfig{Datasets: []pipeline.Dataset{}}
	} else {
		log.Printf("📁 Loaded %d dataset(s)", len(datasetsConfig.Datasets))
	}

	// Start the scheduler for automatic rebuilds
	scheduler := pipeline.NewScheduler(datasetsConfig, store, cwd)
	go scheduler.Start()
	defer scheduler.Stop()

	// Setup HTTP routes
	mux := http.NewServeMux()

	// CORS middleware
	corsMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// API endpoints
	mux.HandleFunc("/api/runs", api.GetRuns(store))
	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/status") {
			api.GetRunStatus(store)(w, r)
		} else {
			api.GetRun(store)(w, r)
		}
	})
	mux.HandleFunc("/api/artifacts", api.GetArtifacts(store))
	mux.HandleFunc("/api/stats", api.GetStats(store))
	mux.HandleFunc("/api/events", api.SSEHandler())

	mux.HandleFunc("/api/datasets", api.GetDatasets(datasetsConfig, cwd))
	mux.HandleFunc("/api/datasets/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/run") {
			api.PostDatasetRun(store, datasetsConfig, cwd)(w, r)
		} else {
			http.NotFound(w, r)
		}
	})

	// Start HTTP server with CORS
	serverAddr := ":" + port
	log.Printf("🚀 Starting sentpipe server on port %s...", port)

	if err := http.ListenAndServe(serverAddr, corsMiddleware(mux)); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// getEnv gets environment variable or returns default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
