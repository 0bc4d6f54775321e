package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Stage is one step of the dataset build. Stages are immutable once loaded;
// the orchestrator only mutates per-run state, never the definition.
type Stage struct {
	ID      string            `yaml:"id" json:"id"`
	Name    string            `yaml:"name,omitempty" json:"name,omitempty"`
	Run     string            `yaml:"run" json:"run"`
	Inputs  []string          `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs []string          `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Needs   []string          `yaml:"needs,omitempty" json:"needs,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Workdir string            `yaml:"workdir,omitempty" json:"workdir,omitempty"`
}

// DisplayName returns the human-readable stage name, falling back to the ID.
func (s Stage) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// ResolvePath makes an artifact path absolute relative to the stage workdir.
func (s Stage) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Workdir, path)
}

// Schedule defines an automatic run trigger for a pipeline.
// Either At ("HH:MM", once per day) or Every ("24h", "30m") is set.
// Force requests a full rebuild instead of an incremental run.
type Schedule struct {
	At    string `yaml:"at,omitempty" json:"at,omitempty"`
	Every string `yaml:"every,omitempty" json:"every,omitempty"`
	Force bool   `yaml:"force,omitempty" json:"force,omitempty"`
}

// Manifest is a pipeline definition loaded from a YAML file.
type Manifest struct {
	Name      string     `yaml:"name" json:"name"`
	Workdir   string     `yaml:"workdir,omitempty" json:"workdir,omitempty"`
	Stages    []Stage    `yaml:"stages" json:"stages"`
	Schedules []Schedule `yaml:"schedules,omitempty" json:"schedules,omitempty"`

	// Path is the manifest file this was loaded from (not part of the YAML).
	Path string `yaml:"-" json:"path"`
}

// LoadManifest reads and parses a pipeline manifest.
//
// Relative workdirs (top-level and per-stage) are resolved against the
// manifest's directory so stage commands never depend on the process's
// current working directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	m.Path = abs

	baseDir := filepath.Dir(abs)
	if m.Workdir == "" {
		m.Workdir = baseDir
	} else if !filepath.IsAbs(m.Workdir) {
		m.Workdir = filepath.Join(baseDir, m.Workdir)
	}
	if m.Name == "" {
		m.Name = filepath.Base(baseDir)
	}

	for i := range m.Stages {
		s := &m.Stages[i]
		if s.Workdir == "" {
			s.Workdir = m.Workdir
		} else if !filepath.IsAbs(s.Workdir) {
			s.Workdir = filepath.Join(m.Workdir, s.Workdir)
		}
	}

	return &m, nil
}

// StageByID returns the stage with the given ID.
func (m *Manifest) StageByID(id string) (*Stage, bool) {
	for i := range m.Stages {
		if m.Stages[i].ID == id {
			return &m.Stages[i], true
		}
	}
	return nil, false
}
