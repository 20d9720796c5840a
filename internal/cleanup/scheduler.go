package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler removes stale staging artifacts left behind by crashed or
// interrupted pipelines. Live pipelines are unaffected as long as maxAge
// comfortably exceeds the download timeout.
type Scheduler struct {
	stagingDir      string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler for the staging directory.
func NewScheduler(stagingDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		stagingDir:      stagingDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start runs one sweep immediately and then sweeps on the configured
// interval until Stop is called.
func (s *Scheduler) Start() {
	log.Println("Running initial staging cleanup...")
	s.sweep()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// sweep deletes staging files older than the age limit. The staging dir is
// flat, so no recursion is needed.
func (s *Scheduler) sweep() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	entries, err := os.ReadDir(s.stagingDir)
	if err != nil {
		log.Printf("Error reading staging directory: %v", err)
		return
	}

	var deletedCount int
	var deletedSize int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		path := filepath.Join(s.stagingDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to delete stale staging file %s: %v", path, err)
			continue
		}
		deletedCount++
		deletedSize += info.Size()
		log.Printf("Deleted stale staging file: %s (age: %s, size: %dKB)",
			entry.Name(), age.Round(time.Hour), info.Size()/1024)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}
