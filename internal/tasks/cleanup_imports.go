package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ImportJobCleaner provides the ability to delete old terminal import jobs.
type ImportJobCleaner interface {
	DeleteTerminalOlderThan(retention time.Duration) (int64, error)
}

// CleanupImportJobsTask removes terminal import jobs older than the
// configured retention period, keeping the ledger bounded.
type CleanupImportJobsTask struct {
	RetentionHours int `json:"retention_hours"`
}

// Config returns the queue configuration for import cleanup tasks.
func (t CleanupImportJobsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_import_jobs",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupImportJobsProcessor creates a processor function for
// CleanupImportJobsTask.
func CleanupImportJobsProcessor(cleaner ImportJobCleaner) backlite.QueueProcessor[CleanupImportJobsTask] {
	return func(ctx context.Context, task CleanupImportJobsTask) error {
		if cleaner == nil {
			return fmt.Errorf("import job cleaner not configured")
		}

		retentionHours := task.RetentionHours
		if retentionHours <= 0 {
			retentionHours = 24 * 30
		}
		retention := time.Duration(retentionHours) * time.Hour

		deleted, err := cleaner.DeleteTerminalOlderThan(retention)
		if err != nil {
			return fmt.Errorf("cleanup import jobs: %w", err)
		}

		if deleted > 0 {
			log.Printf("[TASK] Cleaned up %d import jobs older than %d hours", deleted, retentionHours)
		}
		return nil
	}
}

// NewCleanupImportJobsQueue creates a backlite queue for import cleanup tasks.
func NewCleanupImportJobsQueue(cleaner ImportJobCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupImportJobsProcessor(cleaner))
}
