package interfaces

import (
	"context"

	"github.com/unwan/migro/internal/models"
)

// Ledger is the durable record of job state. It validates and applies state
// transitions, recomputes progress from item counts, and triggers
// notification on every committed write.
type Ledger interface {
	// CreateJob initializes a pending job record
	CreateJob(ctx context.Context, jobID, userID, userEmail string, migrationType models.MigrationType) (*models.MigrationJob, error)

	// UpdateStatus overwrites status, progress and message, bumps UpdatedAt
	// and notifies. Item counts are untouched.
	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, progress int, message string) (*models.MigrationJob, error)

	// UpdateProgress overwrites item counts and recomputes progress from
	// them within the given phase band, ignoring any progress value the
	// caller might have supplied.
	UpdateProgress(ctx context.Context, jobID string, status models.JobStatus, message string, totalItems, processedItems int, phase models.Phase) (*models.MigrationJob, error)

	// Pause, Resume and Cancel are convenience wrappers over UpdateStatus
	// with fixed messages
	Pause(ctx context.Context, jobID string) (*models.MigrationJob, error)
	Resume(ctx context.Context, jobID string) (*models.MigrationJob, error)
	Cancel(ctx context.Context, jobID string) (*models.MigrationJob, error)

	// GetJob returns a job without an ownership check. Internal use only.
	GetJob(ctx context.Context, jobID string) (*models.MigrationJob, error)

	// GetJobForOwner returns the job only if userID matches the owner.
	// A mismatch must not reveal the job's existence.
	GetJobForOwner(ctx context.Context, jobID, userID string) (*models.MigrationJob, error)

	// ListJobsForOwner returns the caller's jobs, most recently started first
	ListJobsForOwner(ctx context.Context, userID string) ([]*models.MigrationJob, error)
}
