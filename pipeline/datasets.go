package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dataset points at one dataset pipeline managed by the server
type Dataset struct {
	Name        string `yaml:"name" json:"name"`
	Path        string `yaml:"path" json:"path"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// DatasetsConfig holds the list of all dataset pipelines
type DatasetsConfig struct {
	Datasets []Dataset `yaml:"datasets" json:"datasets"`
}

// LoadDatasets loads the datasets configuration from a YAML file
func LoadDatasets(configPath string) (*DatasetsConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read datasets config: %w", err)
	}

	var config DatasetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse datasets config: %w", err)
	}

	return &config, nil
}

// GetDataset returns a dataset by name
func (dc *DatasetsConfig) GetDataset(name string) (*Dataset, error) {
	for _, dataset := range dc.Datasets {
		if dataset.Name == name {
			return &dataset, nil
		}
	}
	return nil, fmt.Errorf("dataset '%s' not found", name)
}

// Validate checks if a dataset's path exists and has a sentpipe.yml
func (d *Dataset) Validate(baseDir string) error {
	// Make path absolute if relative
	datasetPath := d.Path
	if !filepath.IsAbs(datasetPath) {
		datasetPath = filepath.Join(baseDir, datasetPath)
	}

	// Check if directory exists
	info, err := os.Stat(datasetPath)
	if err != nil {
		return fmt.Errorf("dataset path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset path is not a directory")
	}

	// Check if sentpipe.yml exists
	manifestPath := filepath.Join(datasetPath, "sentpipe.yml")
	if _, err := os.Stat(manifestPath); err != nil {
		return fmt.Errorf("sentpipe.yml not found in dataset directory")
	}

	return nil
}

// ManifestPath returns the absolute path to the dataset's sentpipe.yml
func (d *Dataset) ManifestPath(baseDir string) string {
	datasetPath := d.Path
	if !filepath.IsAbs(datasetPath) {
		datasetPath = filepath.Join(baseDir, datasetPath)
	}
	return filepath.Join(datasetPath, "sentpipe.yml")
}
