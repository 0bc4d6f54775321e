package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `name: sample
stages:
  - id: fetch
    name: Fetch archive
    run: curl -o data.zip "$URL"
    outputs: [data.zip]
  - id: unpack
    run: unzip -o data.zip -d data
    needs: [fetch]
    inputs: [data.zip]
    outputs: [data]
    workdir: work
    env:
      LANG: C
schedules:
  - every: 24h
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sentpipe.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, sampleManifest)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}

	if m.Name != "sample" {
		t.Errorf("expected name 'sample', got '%s'", m.Name)
	}
	if len(m.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(m.Stages))
	}
	if len(m.Schedules) != 1 || m.Schedules[0].Every != "24h" {
		t.Errorf("expected one 24h schedule, got %+v", m.Schedules)
	}

	baseDir := filepath.Dir(path)

	fetch := m.Stages[0]
	if fetch.Workdir != baseDir {
		t.Errorf("expected fetch workdir %s, got %s", baseDir, fetch.Workdir)
	}
	if fetch.DisplayName() != "Fetch archive" {
		t.Errorf("unexpected display name: %s", fetch.DisplayName())
	}

	unpack := m.Stages[1]
	if unpack.Workdir != filepath.Join(baseDir, "work") {
		t.Errorf("expected relative workdir resolved against manifest dir, got %s", unpack.Workdir)
	}
	if unpack.DisplayName() != "unpack" {
		t.Errorf("expected ID fallback for display name, got %s", unpack.DisplayName())
	}
	if unpack.Env["LANG"] != "C" {
		t.Errorf("expected env LANG=C, got %v", unpack.Env)
	}
}

func TestLoadManifestNameFallback(t *testing.T) {
	path := writeManifest(t, "stages:\n  - id: s1\n    run: \"true\"\n")

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}

	want := filepath.Base(filepath.Dir(path))
	if m.Name != want {
		t.Errorf("expected directory name '%s' as fallback, got '%s'", want, m.Name)
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestStageByID(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}

	s, ok := m.StageByID("unpack")
	if !ok || s.ID != "unpack" {
		t.Fatalf("expected to find stage 'unpack', got %v %v", s, ok)
	}
	if _, ok := m.StageByID("absent"); ok {
		t.Error("expected lookup miss for 'absent'")
	}
}

func TestResolvePath(t *testing.T) {
	s := Stage{ID: "s", Workdir: "/data/work"}
	if got := s.ResolvePath("out.tsv"); got != "/data/work/out.tsv" {
		t.Errorf("unexpected resolved path: %s", got)
	}
	if got := s.ResolvePath("/abs/out.tsv"); got != "/abs/out.tsv" {
		t.Errorf("absolute path should pass through, got %s", got)
	}
}
