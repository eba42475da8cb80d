// -----------------------------------------------------------------------
// Job Ledger - durable job state, transition validation, notification
// -----------------------------------------------------------------------

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/models"
)

var (
	// ErrNotFound is returned for writes or reads referencing an unknown job
	ErrNotFound = errors.New("job not found")

	// ErrDenied is returned when the caller does not own the job. Handlers
	// must present it identically to ErrNotFound so non-owners cannot
	// probe for existence.
	ErrDenied = errors.New("access denied")

	// ErrStaleTransition is returned for writes against a job that already
	// reached a terminal status. A finished job is never resurrected.
	ErrStaleTransition = errors.New("stale transition: job already in terminal state")
)

// Service is the ledger implementation backed by JobStorage. Writes are
// serialized per job so racing control requests cannot interleave a
// read-modify-write.
type Service struct {
	storage  interfaces.JobStorage
	notifier interfaces.Notifier
	logger   arbor.ILogger

	mu       sync.Mutex
	jobLocks map[string]*sync.Mutex
}

// NewService creates a ledger service. notifier may be nil (no push channel).
func NewService(storage interfaces.JobStorage, notifier interfaces.Notifier, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		notifier: notifier,
		logger:   logger,
		jobLocks: make(map[string]*sync.Mutex),
	}
}

// lockJob returns the per-job write lock, creating it on first use
func (s *Service) lockJob(jobID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.jobLocks[jobID]
	if !ok {
		lock = &sync.Mutex{}
		s.jobLocks[jobID] = lock
	}
	return lock
}

// dropLock removes a job's write lock once it reaches a terminal status.
// Terminal jobs reject every write, so the lock can never be needed again;
// keeping the entry would grow the map for the life of the service.
func (s *Service) dropLock(jobID string) {
	s.mu.Lock()
	delete(s.jobLocks, jobID)
	s.mu.Unlock()
}

// CreateJob initializes a pending job record and notifies subscribers
func (s *Service) CreateJob(ctx context.Context, jobID, userID, userEmail string, migrationType models.MigrationType) (*models.MigrationJob, error) {
	job := models.NewMigrationJob(jobID, userID, userEmail, migrationType)

	if err := s.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("user_id", userID).
		Str("migration_type", string(migrationType)).
		Msg("Migration job created")

	s.notify(job)
	return job, nil
}

// UpdateStatus overwrites status, progress and message, bumps UpdatedAt and
// triggers notification. Item counts are untouched.
func (s *Service) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, progress int, message string) (*models.MigrationJob, error) {
	lock := s.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.checkTransition(job, status); err != nil {
		return nil, err
	}

	job.Status = status
	job.Progress = clampProgress(progress)
	job.Message = message
	job.UpdatedAt = time.Now()

	if err := s.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	if job.IsTerminal() {
		s.dropLock(jobID)
	}
	s.notify(job)
	return job, nil
}

// UpdateProgress overwrites item counts and recomputes progress from them
// within the given phase band. Any progress value the caller computed is
// ignored; the ledger derives its own.
func (s *Service) UpdateProgress(ctx context.Context, jobID string, status models.JobStatus, message string, totalItems, processedItems int, phase models.Phase) (*models.MigrationJob, error) {
	lock := s.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.checkTransition(job, status); err != nil {
		return nil, err
	}

	if totalItems < 0 {
		totalItems = 0
	}
	if processedItems < 0 {
		processedItems = 0
	}
	if totalItems > 0 && processedItems > totalItems {
		processedItems = totalItems
	}

	job.Status = status
	job.Message = message
	job.TotalItems = totalItems
	job.ProcessedItems = processedItems
	job.RecomputeProgress(phase)
	job.UpdatedAt = time.Now()

	if err := s.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job progress: %w", err)
	}

	if job.IsTerminal() {
		s.dropLock(jobID)
	}
	s.notify(job)
	return job, nil
}

// setStatus transitions status and message while keeping the stored progress
// and item counts, all under the per-job lock. Pre-reading the progress and
// passing it back through UpdateStatus would let an interleaved progress
// write be clobbered with a stale value.
func (s *Service) setStatus(ctx context.Context, jobID string, status models.JobStatus, message string) (*models.MigrationJob, error) {
	lock := s.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.checkTransition(job, status); err != nil {
		return nil, err
	}

	job.Status = status
	job.Message = message
	job.UpdatedAt = time.Now()

	if err := s.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	if job.IsTerminal() {
		s.dropLock(jobID)
	}
	s.notify(job)
	return job, nil
}

// Pause marks the job paused with a fixed message
func (s *Service) Pause(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	return s.setStatus(ctx, jobID, models.JobStatusPaused, "Migration paused by user")
}

// Resume marks the job in progress again with a fixed message
func (s *Service) Resume(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	return s.setStatus(ctx, jobID, models.JobStatusInProgress, "Migration resumed")
}

// Cancel marks the job cancelled with a fixed message
func (s *Service) Cancel(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	return s.setStatus(ctx, jobID, models.JobStatusCancelled, "Migration cancelled by user")
}

// GetJob returns a job without an ownership check. Internal use only; the
// HTTP surface goes through GetJobForOwner.
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	return s.load(ctx, jobID)
}

// GetJobForOwner returns the job only if userID matches the owner
func (s *Service) GetJobForOwner(ctx context.Context, jobID, userID string) (*models.MigrationJob, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrDenied
	}
	return job, nil
}

// ListJobsForOwner returns the caller's jobs, most recently started first
func (s *Service) ListJobsForOwner(ctx context.Context, userID string) ([]*models.MigrationJob, error) {
	jobs, err := s.storage.ListJobsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for owner: %w", err)
	}
	return jobs, nil
}

func (s *Service) load(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	job, err := s.storage.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *Service) checkTransition(job *models.MigrationJob, next models.JobStatus) error {
	if job.Status.IsTerminal() {
		// A rejected late write re-created the lock entry in lockJob
		s.dropLock(job.JobID)
		return fmt.Errorf("%w: %s is %s", ErrStaleTransition, job.JobID, job.Status)
	}
	if !job.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid transition for %s: %s -> %s", job.JobID, job.Status, next)
	}
	return nil
}

// notify pushes the committed snapshot to subscribers off the write path.
// Failures are logged by the notifier and never surface to the writer.
func (s *Service) notify(job *models.MigrationJob) {
	if s.notifier == nil {
		return
	}
	snapshot := *job
	common.SafeGo(s.logger, "ledger.notify", func() {
		s.notifier.NotifyJob(snapshot.UserID, &snapshot)
	})
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
