package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"sentpipe/events"
	"sentpipe/pipeline/storage"
)

// Scheduler triggers automatic dataset rebuilds based on manifest schedules.
// Scheduled runs go through the normal orchestrator, so they stay
// incremental unless the schedule asks for a forced rebuild.
type Scheduler struct {
	datasetsConfig *DatasetsConfig
	storage        *storage.Storage
	baseDir        string
	stopChan       chan struct{}
	lastRuns       map[string]time.Time // track last execution per schedule
	mu             sync.RWMutex         // protect lastRuns map
	runningJobs    map[string]bool      // track currently running schedules
}

// NewScheduler creates a new scheduler instance
func NewScheduler(datasetsConfig *DatasetsConfig, storage *storage.Storage, baseDir string) *Scheduler {
	return &Scheduler{
		datasetsConfig: datasetsConfig,
		storage:        storage,
		baseDir:        baseDir,
		stopChan:       make(chan struct{}),
		lastRuns:       make(map[string]time.Time),
		runningJobs:    make(map[string]bool),
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	log.Println("📅 Scheduler started")
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run tick immediately on start
	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			log.Println("📅 Scheduler stopped")
			return
		}
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// tick checks all schedules and triggers runs if needed
func (s *Scheduler) tick() {
	for _, dataset := range s.datasetsConfig.Datasets {
		manifestPath := dataset.ManifestPath(s.baseDir)

		// Load manifest; skip datasets whose manifest is missing or broken
		m, err := LoadManifest(manifestPath)
		if err != nil {
			continue
		}

		// No schedules defined
		if len(m.Schedules) == 0 {
			continue
		}

		// Check each schedule
		for i, schedule := range m.Schedules {
			scheduleKey := fmt.Sprintf("%s-schedule-%d", dataset.Name, i)

			s.mu.RLock()
			lastRun := s.lastRuns[scheduleKey]
			isRunning := s.runningJobs[scheduleKey]
			s.mu.RUnlock()

			// Skip if already running
			if isRunning {
				continue
			}

			if s.shouldRun(schedule, lastRun) {
				// Mark as running
				s.mu.Lock()
				s.runningJobs[scheduleKey] = true
				s.lastRuns[scheduleKey] = time.Now()
				s.mu.Unlock()

				// Execute in goroutine
				go func(name, path string, sched Schedule, key string) {
					s.executeSchedule(name, path, sched)

					// Mark as not running
					s.mu.Lock()
					delete(s.runningJobs, key)
					s.mu.Unlock()
				}(dataset.Name, manifestPath, schedule, scheduleKey)
			}
		}
	}
}

// shouldRun determines if a schedule should be triggered now
func (s *Scheduler) shouldRun(schedule Schedule, lastRun time.Time) bool {
	now := time.Now()

	// Time-based schedule (at: "HH:MM")
	if schedule.At != "" {
		hour, minute, err := parseAtTime(schedule.At)
		if err != nil {
			log.Printf("⚠️  Invalid time format '%s': %v", schedule.At, err)
			return false
		}

		// Check if current time matches schedule time
		if now.Hour() == hour && now.Minute() == minute {
			// Ensure we only run once per day at this time
			if lastRun.IsZero() || now.Sub(lastRun) >= 23*time.Hour {
				return true
			}
		}
		return false
	}

	// Interval-based schedule (every: "1h", "30m", etc.)
	if schedule.Every != "" {
		interval, err := time.ParseDuration(schedule.Every)
		if err != nil {
			log.Printf("⚠️  Invalid interval format '%s': %v", schedule.Every, err)
			return false
		}

		// First run or interval elapsed
		if lastRun.IsZero() || now.Sub(lastRun) >= interval {
			return true
		}
		return false
	}

	return false
}

// executeSchedule triggers a pipeline run for the given schedule
func (s *Scheduler) executeSchedule(datasetName, manifestPath string, schedule Schedule) {
	mode := "incremental"
	if schedule.Force {
		mode = "forced rebuild"
	}
	trigger := schedule.At
	if trigger == "" {
		trigger = schedule.Every
	}

	log.Printf("⏰ Schedule triggered: %s (%s) - %s", datasetName, mode, trigger)

	outcome, err := ExecuteFile(context.Background(), manifestPath, ExecuteOptions{
		Storage:          s.storage,
		Broker:           events.GetBroker(),
		StreamToTerminal: false,
		Force:            schedule.Force,
	})
	if err != nil {
		log.Printf("❌ Scheduled run failed for %s: %v", datasetName, err)
		return
	}
	log.Printf("✅ Scheduled run completed: %s (run %d, %d records)", datasetName, outcome.RunID, outcome.Records)
}

// parseAtTime parses "HH:MM" format
func parseAtTime(at string) (hour, minute int, err error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format, expected HH:MM")
	}

	var hourVal int
	hourVal, err = strconv.Atoi(parts[0])
	if err != nil || hourVal < 0 || hourVal > 23 {
		return 0, 0, fmt.Errorf("invalid hour")
	}
	hour = hourVal

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute")
	}

	return hour, minute, nil
}
