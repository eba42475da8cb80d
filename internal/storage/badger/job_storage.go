package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/models"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.MigrationJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.JobID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	var job models.MigrationJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobsByOwner(ctx context.Context, userID string) ([]*models.MigrationJob, error) {
	var jobs []models.MigrationJob
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID").SortBy("StartedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.MigrationJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) CountJobs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.MigrationJob{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *JobStorage) CountActiveJobs(ctx context.Context) (int, error) {
	query := badgerhold.Where("Status").In(
		models.JobStatusPending,
		models.JobStatusInProgress,
		models.JobStatusPaused,
	)
	count, err := s.db.Store().Count(&models.MigrationJob{}, query)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *JobStorage) Close() error {
	return s.db.Close()
}
