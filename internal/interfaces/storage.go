package interfaces

import (
	"context"
	"errors"

	"github.com/unwan/migro/internal/models"
)

// ErrJobNotFound is returned when no job record exists for the given ID
var ErrJobNotFound = errors.New("job not found")

// JobStorage persists migration job records
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.MigrationJob) error
	GetJob(ctx context.Context, jobID string) (*models.MigrationJob, error)
	ListJobsByOwner(ctx context.Context, userID string) ([]*models.MigrationJob, error)
	CountJobs(ctx context.Context) (int, error)
	CountActiveJobs(ctx context.Context) (int, error)
	Close() error
}
