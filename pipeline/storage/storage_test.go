package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStorage(t)

	run, err := store.CreateRun("/data/sentpipe.yml", "sentifm-brat")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == 0 || run.UID == "" {
		t.Errorf("expected ID and UID assigned, got %+v", run)
	}
	if run.Status != "running" {
		t.Errorf("expected status running, got %s", run.Status)
	}

	if err := store.UpdateRunStatus(run.ID, "success", 3*time.Second); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != "success" {
		t.Errorf("expected success, got %s", got.Status)
	}
	if got.UID != run.UID {
		t.Errorf("expected uid %s, got %s", run.UID, got.UID)
	}
	if got.FinishedAt == nil || got.Duration == nil {
		t.Error("expected finished_at and duration set")
	}
	if *got.Duration != "3s" {
		t.Errorf("expected duration 3s, got %s", *got.Duration)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := openTestStorage(t)
	if _, err := store.GetRun(42); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestGetRunsOrdering(t *testing.T) {
	store := openTestStorage(t)

	for i := 0; i < 3; i++ {
		if _, err := store.CreateRun("/data/sentpipe.yml", "p"); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.GetRuns(2)
	if err != nil {
		t.Fatalf("GetRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected limit applied, got %d runs", len(runs))
	}
}

func TestStageExecutions(t *testing.T) {
	store := openTestStorage(t)

	run, err := store.CreateRun("/data/sentpipe.yml", "p")
	if err != nil {
		t.Fatal(err)
	}

	exec, err := store.CreateStageExecution(run.ID, "split", "Split sentences", "python split.py", "running")
	if err != nil {
		t.Fatalf("CreateStageExecution failed: %v", err)
	}

	if err := store.UpdateStageExecution(exec.ID, "succeeded", "wrote rows: 100\n", 2*time.Second); err != nil {
		t.Fatalf("UpdateStageExecution failed: %v", err)
	}

	stages, err := store.GetStageExecutions(run.ID)
	if err != nil {
		t.Fatalf("GetStageExecutions failed: %v", err)
	}
	if len(stages) != 1 {
		t.Fatalf("expected 1 stage execution, got %d", len(stages))
	}
	s := stages[0]
	if s.StageID != "split" || s.Status != "succeeded" {
		t.Errorf("unexpected stage execution: %+v", s)
	}
	if s.Output != "wrote rows: 100\n" {
		t.Errorf("unexpected output: %q", s.Output)
	}
}

func TestArtifactUpsert(t *testing.T) {
	store := openTestStorage(t)

	mtime := time.Now()
	if err := store.RecordArtifact("/data/b.txt", "aaa", 10, mtime, "s2", 1); err != nil {
		t.Fatalf("RecordArtifact failed: %v", err)
	}

	a, err := store.GetArtifact("/data/b.txt")
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if a == nil || a.Hash != "aaa" || a.Size != 10 || a.StageID != "s2" {
		t.Fatalf("unexpected artifact: %+v", a)
	}
	if !a.MTime.Equal(mtime) {
		t.Errorf("expected mtime preserved to the nanosecond, got %v want %v", a.MTime, mtime)
	}

	// Re-recording the same path replaces the fingerprint
	if err := store.RecordArtifact("/data/b.txt", "bbb", 20, mtime.Add(time.Minute), "s2", 2); err != nil {
		t.Fatalf("RecordArtifact upsert failed: %v", err)
	}
	a, err = store.GetArtifact("/data/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash != "bbb" || a.Size != 20 || a.RunID != 2 {
		t.Errorf("expected replaced fingerprint, got %+v", a)
	}
}

func TestGetArtifactMissing(t *testing.T) {
	store := openTestStorage(t)

	a, err := store.GetArtifact("/nope")
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if a != nil {
		t.Errorf("expected nil for unknown path, got %+v", a)
	}
}

func TestDeleteArtifact(t *testing.T) {
	store := openTestStorage(t)

	if err := store.RecordArtifact("/data/x", "h", 1, time.Now(), "s1", 1); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteArtifact("/data/x"); err != nil {
		t.Fatalf("DeleteArtifact failed: %v", err)
	}
	a, err := store.GetArtifact("/data/x")
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Errorf("expected artifact deleted, got %+v", a)
	}
}

func TestGetLatestRunsByPipeline(t *testing.T) {
	store := openTestStorage(t)

	for i := 0; i < 3; i++ {
		run, err := store.CreateRun("/a/sentpipe.yml", "alpha")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.CreateStageExecution(run.ID, "s1", "s1", "true", "succeeded"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.CreateRun("/b/sentpipe.yml", "beta"); err != nil {
		t.Fatal(err)
	}

	stats, err := store.GetLatestRunsByPipeline(2)
	if err != nil {
		t.Fatalf("GetLatestRunsByPipeline failed: %v", err)
	}

	perPipeline := make(map[string]int)
	for _, s := range stats {
		perPipeline[s.PipelineName]++
	}
	if perPipeline["alpha"] != 2 {
		t.Errorf("expected 2 alpha runs after per-pipeline limit, got %d", perPipeline["alpha"])
	}
	if perPipeline["beta"] != 1 {
		t.Errorf("expected 1 beta run, got %d", perPipeline["beta"])
	}

	for _, s := range stats {
		if s.PipelineName == "alpha" && s.StageCount != 1 {
			t.Errorf("expected stage count 1 for alpha runs, got %d", s.StageCount)
		}
	}
}
