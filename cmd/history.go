package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
)

// History executes the 'history' command: recent runs, most recent first
func History(limit int) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.GetRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to get runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPIPELINE\tSTATUS\tSTARTED\tDURATION")
	for _, r := range runs {
		duration := "-"
		if r.Duration != nil {
			duration = *r.Duration
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.PipelineName, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), duration)
	}
	return w.Flush()
}

// Show executes the 'show' command: one run with its stage executions
func Show(runID int) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}

	stages, err := store.GetStageExecutions(runID)
	if err != nil {
		return fmt.Errorf("failed to get stages: %w", err)
	}

	fmt.Printf("Run %d (%s)\n", run.ID, run.UID)
	fmt.Printf("  Pipeline: %s\n", run.PipelineName)
	fmt.Printf("  Manifest: %s\n", run.ManifestPath)
	fmt.Printf("  Status:   %s\n", run.Status)
	fmt.Printf("  Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.Duration != nil {
		fmt.Printf("  Duration: %s\n", *run.Duration)
	}

	if len(stages) == 0 {
		return nil
	}

	fmt.Println("\nStages:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  STAGE\tSTATUS\tDURATION")
	for _, s := range stages {
		duration := "-"
		if s.Duration != nil {
			duration = *s.Duration
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", s.StageID, s.Status, duration)
	}
	return w.Flush()
}
