package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/models"
)

func newTestStorage(t *testing.T) interfaces.JobStorage {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "migro-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewJobStorage(db, logger)
}

func TestSaveAndGetJob(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	job := models.NewMigrationJob("job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	require.NoError(t, storage.SaveJob(ctx, job))

	loaded, err := storage.GetJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, job.JobID, loaded.JobID)
	assert.Equal(t, job.UserID, loaded.UserID)
	assert.Equal(t, models.JobStatusPending, loaded.Status)

	// Upsert overwrites in place
	job.Status = models.JobStatusInProgress
	job.Progress = 40
	require.NoError(t, storage.SaveJob(ctx, job))

	loaded, err = storage.GetJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, loaded.Status)
	assert.Equal(t, 40, loaded.Progress)
}

func TestSaveJob_RequiresID(t *testing.T) {
	storage := newTestStorage(t)

	job := models.NewMigrationJob("", "user1", "user1@example.com", models.MigrationTypeMail)
	assert.Error(t, storage.SaveJob(context.Background(), job))
}

func TestGetJob_NotFound(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.GetJob(context.Background(), "job_missing")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestListJobsByOwner(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"job_1", "job_2", "job_3"} {
		job := models.NewMigrationJob(id, "user1", "user1@example.com", models.MigrationTypeMail)
		job.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, storage.SaveJob(ctx, job))
	}
	other := models.NewMigrationJob("job_other", "user2", "user2@example.com", models.MigrationTypeDrive)
	require.NoError(t, storage.SaveJob(ctx, other))

	jobs, err := storage.ListJobsByOwner(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	// Most recently started first
	assert.Equal(t, "job_3", jobs[0].JobID)
	assert.Equal(t, "job_2", jobs[1].JobID)
	assert.Equal(t, "job_1", jobs[2].JobID)

	jobs, err = storage.ListJobsByOwner(ctx, "user3")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCountJobs(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	count, err := storage.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	active := models.NewMigrationJob("job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	require.NoError(t, storage.SaveJob(ctx, active))

	done := models.NewMigrationJob("job_2", "user1", "user1@example.com", models.MigrationTypeMail)
	done.Status = models.JobStatusCompleted
	require.NoError(t, storage.SaveJob(ctx, done))

	count, err = storage.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	activeCount, err := storage.CountActiveJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, activeCount)
}
