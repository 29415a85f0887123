package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	retention time.Duration
	deleted   int64
	err       error
}

func (f *fakeCleaner) DeleteTerminalOlderThan(retention time.Duration) (int64, error) {
	f.retention = retention
	return f.deleted, f.err
}

func TestCleanupImportJobsProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("passes the configured retention to the cleaner", func(t *testing.T) {
		cleaner := &fakeCleaner{deleted: 3}
		processor := CleanupImportJobsProcessor(cleaner)

		err := processor(ctx, CleanupImportJobsTask{RetentionHours: 48})
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour, cleaner.retention)
	})

	t.Run("zero retention falls back to 30 days", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		processor := CleanupImportJobsProcessor(cleaner)

		err := processor(ctx, CleanupImportJobsTask{})
		require.NoError(t, err)
		assert.Equal(t, 720*time.Hour, cleaner.retention)
	})

	t.Run("cleaner errors surface for retry", func(t *testing.T) {
		cleaner := &fakeCleaner{err: errors.New("database locked")}
		processor := CleanupImportJobsProcessor(cleaner)

		err := processor(ctx, CleanupImportJobsTask{RetentionHours: 1})
		assert.ErrorContains(t, err, "database locked")
	})

	t.Run("missing cleaner is an error", func(t *testing.T) {
		processor := CleanupImportJobsProcessor(nil)
		assert.Error(t, processor(ctx, CleanupImportJobsTask{}))
	})
}

func TestCleanupImportJobsTaskConfig(t *testing.T) {
	cfg := CleanupImportJobsTask{}.Config()
	assert.Equal(t, "cleanup_import_jobs", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
}
