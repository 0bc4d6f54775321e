package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"sentpipe/pipeline/storage"
)

// openStorage opens the SQLite database, creating the data directory on
// demand. The path comes from SENTPIPE_DB or defaults to ./data/sentpipe.db.
func openStorage() (*storage.Storage, error) {
	dbPath := os.Getenv("SENTPIPE_DB")
	if dbPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		dataDir := filepath.Join(cwd, "data")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "sentpipe.db")
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}
