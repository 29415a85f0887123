// Package imports provides the durable job ledger for bulk imports.
//
// This package implements the importer.Ledger interface:
//
//	var _ importer.Ledger = (*Repository)(nil)
//
// The per-job record is single-writer (only the owning loop and the
// pause/resume callers mutate it) but multi-reader; counter updates go
// through one transaction so readers never see processed incremented
// without the matching outcome counter.
package imports

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/importer"
)

// Repository handles all import job ledger operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new import ledger repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateJob persists a new pending job record.
func (r *Repository) CreateJob(job *entities.ImportJob) error {
	return r.db.Create(job).Error
}

// GetJob retrieves one job with its full row-error list.
func (r *Repository) GetJob(id string) (*entities.ImportJob, error) {
	var job entities.ImportJob
	err := r.db.Preload("RowErrors", func(db *gorm.DB) *gorm.DB {
		return db.Order("row ASC")
	}).First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns all jobs, most recent first.
func (r *Repository) ListJobs() ([]entities.ImportJob, error) {
	var jobs []entities.ImportJob
	err := r.db.Preload("RowErrors", func(db *gorm.DB) *gorm.DB {
		return db.Order("row ASC")
	}).Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// DeleteJob removes a job record and its row errors.
func (r *Repository) DeleteJob(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&entities.ImportRowError{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.ImportJob{}, "id = ?", id).Error
	})
}

// MarkRunning records the pending -> running transition. Called once
// per job, at loop start.
func (r *Repository) MarkRunning(id string, startedAt time.Time) error {
	return r.updateJob(id, map[string]any{
		"status":     entities.ImportStatusRunning,
		"started_at": startedAt,
	})
}

// MarkPaused records entry into paused. PausedAt is refreshed on every
// pause.
func (r *Repository) MarkPaused(id string, pausedAt time.Time) error {
	return r.updateJob(id, map[string]any{
		"status":    entities.ImportStatusPaused,
		"paused_at": pausedAt,
	})
}

// MarkResumed records the paused -> running transition.
func (r *Repository) MarkResumed(id string) error {
	return r.updateJob(id, map[string]any{
		"status":    entities.ImportStatusRunning,
		"paused_at": nil,
	})
}

// MarkCancelled records the terminal cancelled status.
func (r *Repository) MarkCancelled(id string, cancelledAt time.Time) error {
	return r.updateJob(id, map[string]any{
		"status":       entities.ImportStatusCancelled,
		"cancelled_at": cancelledAt,
	})
}

// MarkCompleted records the terminal completed status.
func (r *Repository) MarkCompleted(id string, completedAt time.Time) error {
	return r.updateJob(id, map[string]any{
		"status":       entities.ImportStatusCompleted,
		"completed_at": completedAt,
	})
}

// MarkFailed records a job-level abort, distinct from row errors.
func (r *Repository) MarkFailed(id string, reason string, completedAt time.Time) error {
	return r.updateJob(id, map[string]any{
		"status":          entities.ImportStatusFailed,
		"top_level_error": reason,
		"completed_at":    completedAt,
	})
}

// RecordRow applies one row's outcome: processed and exactly one of
// succeeded/failed/skipped increment together, plus the error entry
// for failures, all in a single transaction.
func (r *Repository) RecordRow(id string, outcome importer.RowOutcome, row int, message string) error {
	var column string
	switch outcome {
	case importer.OutcomeSuccess:
		column = "succeeded"
	case importer.OutcomeFailed:
		column = "failed"
	case importer.OutcomeSkipped:
		column = "skipped"
	default:
		return fmt.Errorf("unknown row outcome %q", outcome)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.ImportJob{}).Where("id = ?", id).Updates(map[string]any{
			"processed": gorm.Expr("processed + 1"),
			column:      gorm.Expr(column + " + 1"),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if outcome == importer.OutcomeFailed {
			return tx.Create(&entities.ImportRowError{
				JobID:   id,
				Row:     row,
				Message: message,
			}).Error
		}
		return nil
	})
}

// FailInterrupted marks any job left non-terminal by a previous process
// as failed. Called once at startup; resuming across restarts is not
// supported.
func (r *Repository) FailInterrupted() (int64, error) {
	result := r.db.Model(&entities.ImportJob{}).
		Where("status IN ?", []entities.ImportStatus{
			entities.ImportStatusPending,
			entities.ImportStatusRunning,
			entities.ImportStatusPaused,
		}).
		Updates(map[string]any{
			"status":          entities.ImportStatusFailed,
			"top_level_error": "interrupted by server restart",
			"completed_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteTerminalOlderThan removes terminal jobs whose last activity is
// older than the retention period. Returns the number of jobs removed.
func (r *Repository) DeleteTerminalOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	var ids []string
	err := r.db.Model(&entities.ImportJob{}).
		Where("status IN ?", []entities.ImportStatus{
			entities.ImportStatusCancelled,
			entities.ImportStatusCompleted,
			entities.ImportStatusFailed,
		}).
		Where("created_at < ?", cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id IN ?", ids).Delete(&entities.ImportRowError{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&entities.ImportJob{}).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (r *Repository) updateJob(id string, updates map[string]any) error {
	result := r.db.Model(&entities.ImportJob{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
