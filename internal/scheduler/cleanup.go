// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/shelfmark/shelfmark/internal/tasks"
)

// CleanupScheduler periodically enqueues the import job cleanup task.
type CleanupScheduler struct {
	client         *tasks.Client
	schedule       string
	retentionHours int

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	isRunning bool
}

// NewCleanupScheduler creates a scheduler that enqueues cleanup on the
// given cron schedule (standard 5-field format).
func NewCleanupScheduler(client *tasks.Client, schedule string, retentionHours int) *CleanupScheduler {
	return &CleanupScheduler{
		client:         client,
		schedule:       schedule,
		retentionHours: retentionHours,
		cron:           cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the schedule. Safe to call once.
func (s *CleanupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.enqueue)
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	log.Printf("Import cleanup scheduler started (schedule %q)", s.schedule)
	return nil
}

// Stop halts the schedule. In-flight enqueues are allowed to finish.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.cron.Remove(s.entryID)
	s.cron.Stop()
	s.isRunning = false
}

func (s *CleanupScheduler) enqueue() {
	op := s.client.Add(tasks.CleanupImportJobsTask{RetentionHours: s.retentionHours})
	if _, err := op.Save(); err != nil {
		log.Printf("Failed to enqueue import cleanup task: %v", err)
	}
}
