package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sentpipe/pipeline/storage"
)

func testStore(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestArtifactStoreMissingOutputIsStale(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{ID: "s1", Outputs: []string{"out.tsv"}, Workdir: dir}

	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatalf("IsUpToDate failed: %v", err)
	}
	if upToDate {
		t.Error("missing output must be stale")
	}
}

func TestArtifactStoreNoOutputsNeverUpToDate(t *testing.T) {
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{ID: "provision", Run: "true", Workdir: t.TempDir()}

	if err := artifacts.Record(1, stage); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if upToDate {
		t.Error("a stage with no declared outputs must always run")
	}
}

func TestArtifactStoreRecordThenUpToDate(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{ID: "s1", Outputs: []string{"out.tsv"}, Workdir: dir}

	writeFile(t, filepath.Join(dir, "out.tsv"), "row\n")

	// Presence alone is not enough without a recorded fingerprint
	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if upToDate {
		t.Error("output without a recorded fingerprint must be stale")
	}

	if err := artifacts.Record(1, stage); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	upToDate, err = artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if !upToDate {
		t.Error("recorded, unchanged output must be up to date")
	}
}

func TestArtifactStoreChangedOutputIsStale(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{ID: "s1", Outputs: []string{"out.tsv"}, Workdir: dir}

	writeFile(t, filepath.Join(dir, "out.tsv"), "row\n")
	if err := artifacts.Record(1, stage); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "out.tsv"), "tampered\n")

	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if upToDate {
		t.Error("modified output must be stale")
	}
}

func TestArtifactStoreNewerInputIsStale(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{
		ID:      "s2",
		Inputs:  []string{"in.tsv"},
		Outputs: []string{"out.tsv"},
		Workdir: dir,
	}

	inPath := filepath.Join(dir, "in.tsv")
	outPath := filepath.Join(dir, "out.tsv")
	writeFile(t, inPath, "input\n")
	writeFile(t, outPath, "output\n")
	if err := artifacts.Record(1, stage); err != nil {
		t.Fatal(err)
	}

	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if !upToDate {
		t.Fatal("expected up to date before touching the input")
	}

	// Bump the input mtime past the output's
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(inPath, future, future); err != nil {
		t.Fatal(err)
	}

	upToDate, err = artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if upToDate {
		t.Error("input newer than output must make the stage stale")
	}
}

func TestArtifactStoreMissingInputIsStale(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{
		ID:      "s2",
		Inputs:  []string{"gone.tsv"},
		Outputs: []string{"out.tsv"},
		Workdir: dir,
	}

	writeFile(t, filepath.Join(dir, "out.tsv"), "output\n")
	if err := artifacts.Record(1, stage); err != nil {
		t.Fatal(err)
	}

	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if upToDate {
		t.Error("missing input must make the stage stale")
	}
}

func TestArtifactStoreRecordMissingOutput(t *testing.T) {
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{ID: "s1", Outputs: []string{"never_written.tsv"}, Workdir: t.TempDir()}

	err := artifacts.Record(1, stage)
	if err == nil {
		t.Fatal("expected error for missing declared output")
	}
}

func TestArtifactStoreInvalidate(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifactStore(testStore(t))
	stage := Stage{ID: "s1", Outputs: []string{"out.tsv"}, Workdir: dir}

	writeFile(t, filepath.Join(dir, "out.tsv"), "row\n")
	if err := artifacts.Record(1, stage); err != nil {
		t.Fatal(err)
	}
	if err := artifacts.Invalidate(stage); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if upToDate {
		t.Error("invalidated stage must be stale")
	}
}

func TestArtifactStoreNilStorage(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifactStore(nil)
	stage := Stage{ID: "s1", Outputs: []string{"out.tsv"}, Workdir: dir}

	writeFile(t, filepath.Join(dir, "out.tsv"), "row\n")

	// Record still verifies output existence, but nothing persists
	if err := artifacts.Record(1, stage); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	upToDate, err := artifacts.IsUpToDate(stage)
	if err != nil {
		t.Fatal(err)
	}
	if upToDate {
		t.Error("without persistence every stage is stale")
	}
}
