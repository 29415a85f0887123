package imports

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/importer"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()
	dbPath := "./test_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return NewRepository(db.DB), cleanup
}

func newJobRecord(status entities.ImportStatus) *entities.ImportJob {
	return &entities.ImportJob{
		ID:        uuid.NewString(),
		Status:    status,
		Format:    entities.ImportFormatGoodreads,
		Filename:  "books.csv",
		TotalRows: 10,
	}
}

func TestJobLifecycle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	job := newJobRecord(entities.ImportStatusPending)
	job.SkipDuplicates = true
	require.NoError(t, repo.CreateJob(job))

	t.Run("GetJob returns the stored record", func(t *testing.T) {
		got, err := repo.GetJob(job.ID)
		require.NoError(t, err)

		assert.Equal(t, entities.ImportStatusPending, got.Status)
		assert.Equal(t, entities.ImportFormatGoodreads, got.Format)
		assert.True(t, got.SkipDuplicates)
		assert.Equal(t, "books.csv", got.Filename)
		assert.Equal(t, 10, got.TotalRows)
		assert.Zero(t, got.Processed)
	})

	t.Run("GetJob on an unknown id reports not found", func(t *testing.T) {
		_, err := repo.GetJob(uuid.NewString())
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("status transitions stamp their timestamps", func(t *testing.T) {
		require.NoError(t, repo.MarkRunning(job.ID, time.Now()))
		got, err := repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ImportStatusRunning, got.Status)
		assert.NotNil(t, got.StartedAt)

		require.NoError(t, repo.MarkPaused(job.ID, time.Now()))
		got, err = repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ImportStatusPaused, got.Status)
		assert.NotNil(t, got.PausedAt)

		require.NoError(t, repo.MarkResumed(job.ID))
		got, err = repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ImportStatusRunning, got.Status)
		assert.Nil(t, got.PausedAt)

		require.NoError(t, repo.MarkCompleted(job.ID, time.Now()))
		got, err = repo.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ImportStatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("marking an unknown job reports not found", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkRunning(uuid.NewString(), time.Now()), gorm.ErrRecordNotFound)
	})

	t.Run("DeleteJob removes the record", func(t *testing.T) {
		require.NoError(t, repo.DeleteJob(job.ID))
		_, err := repo.GetJob(job.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestMarkFailed(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	job := newJobRecord(entities.ImportStatusRunning)
	require.NoError(t, repo.CreateJob(job))

	require.NoError(t, repo.MarkFailed(job.ID, "record row progress: disk full", time.Now()))

	got, err := repo.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusFailed, got.Status)
	assert.Equal(t, "record row progress: disk full", got.TopLevelError)
	assert.NotNil(t, got.CompletedAt)
}

func TestRecordRow(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	job := newJobRecord(entities.ImportStatusRunning)
	require.NoError(t, repo.CreateJob(job))

	require.NoError(t, repo.RecordRow(job.ID, importer.OutcomeSuccess, 1, ""))
	require.NoError(t, repo.RecordRow(job.ID, importer.OutcomeFailed, 2, "missing title"))
	require.NoError(t, repo.RecordRow(job.ID, importer.OutcomeSkipped, 3, ""))
	require.NoError(t, repo.RecordRow(job.ID, importer.OutcomeFailed, 4, "duplicate check: database locked"))

	got, err := repo.GetJob(job.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, got.Processed)
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, got.Processed, got.Succeeded+got.Failed+got.Skipped)

	// One error entry per failed row, ordered by row number.
	require.Len(t, got.RowErrors, 2)
	assert.Equal(t, 2, got.RowErrors[0].Row)
	assert.Equal(t, "missing title", got.RowErrors[0].Message)
	assert.Equal(t, 4, got.RowErrors[1].Row)

	t.Run("unknown outcome is rejected", func(t *testing.T) {
		assert.Error(t, repo.RecordRow(job.ID, "exploded", 5, ""))
	})

	t.Run("unknown job reports not found", func(t *testing.T) {
		assert.ErrorIs(t, repo.RecordRow(uuid.NewString(), importer.OutcomeSuccess, 1, ""), gorm.ErrRecordNotFound)
	})
}

func TestListJobs(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	older := newJobRecord(entities.ImportStatusCompleted)
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.CreateJob(older))

	newer := newJobRecord(entities.ImportStatusRunning)
	newer.CreatedAt = time.Now()
	require.NoError(t, repo.CreateJob(newer))

	jobs, err := repo.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, newer.ID, jobs[0].ID)
	assert.Equal(t, older.ID, jobs[1].ID)
}

func TestFailInterrupted(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	running := newJobRecord(entities.ImportStatusRunning)
	require.NoError(t, repo.CreateJob(running))
	paused := newJobRecord(entities.ImportStatusPaused)
	require.NoError(t, repo.CreateJob(paused))
	completed := newJobRecord(entities.ImportStatusCompleted)
	require.NoError(t, repo.CreateJob(completed))

	n, err := repo.FailInterrupted()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, id := range []string{running.ID, paused.ID} {
		got, err := repo.GetJob(id)
		require.NoError(t, err)
		assert.Equal(t, entities.ImportStatusFailed, got.Status)
		assert.Equal(t, "interrupted by server restart", got.TopLevelError)
	}

	got, err := repo.GetJob(completed.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusCompleted, got.Status)
}

func TestDeleteTerminalOlderThan(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	oldCompleted := newJobRecord(entities.ImportStatusCompleted)
	oldCompleted.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.CreateJob(oldCompleted))
	require.NoError(t, repo.RecordRow(oldCompleted.ID, importer.OutcomeFailed, 1, "missing title"))

	oldRunning := newJobRecord(entities.ImportStatusRunning)
	oldRunning.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.CreateJob(oldRunning))

	recentCompleted := newJobRecord(entities.ImportStatusCompleted)
	require.NoError(t, repo.CreateJob(recentCompleted))

	n, err := repo.DeleteTerminalOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetJob(oldCompleted.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.GetJob(oldRunning.ID)
	assert.NoError(t, err)
	_, err = repo.GetJob(recentCompleted.ID)
	assert.NoError(t, err)

	t.Run("nothing eligible is a no-op", func(t *testing.T) {
		n, err := repo.DeleteTerminalOlderThan(24 * time.Hour)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
