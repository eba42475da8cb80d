// -----------------------------------------------------------------------
// Migration Orchestrator - per-user exclusivity, async task scheduling,
// pause/resume/cancel signaling
// -----------------------------------------------------------------------

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/models"
)

var (
	// ErrAlreadyRunning is returned when the user's exclusivity slot is
	// held; the caller may retry after the running job finishes.
	ErrAlreadyRunning = errors.New("a migration is already in progress for this user")

	// ErrValidation is returned for malformed submissions
	ErrValidation = errors.New("invalid migration request")

	// ErrUnknownJob is returned by control operations for a job that is
	// neither running nor recorded in the ledger
	ErrUnknownJob = errors.New("unknown job")
)

// Stats is a point-in-time snapshot for operational visibility
type Stats struct {
	ActiveJobs int `json:"active_jobs"`
	HeldSlots  int `json:"held_slots"`
}

// Service accepts one migration request at a time per user, runs it to
// completion off the caller's path, and exposes pause/resume/cancel control.
type Service struct {
	ledger   interfaces.Ledger
	adapters interfaces.AdapterRegistry
	config   *common.MigrationConfig
	logger   arbor.ILogger
	validate *validator.Validate

	slots   *slotStore
	signals *signalStore

	mu     sync.Mutex
	active int

	// wg tracks running tasks so tests and shutdown can wait for drain
	wg sync.WaitGroup
}

// NewService creates a migration orchestrator
func NewService(ledger interfaces.Ledger, adapters interfaces.AdapterRegistry, config *common.MigrationConfig, logger arbor.ILogger) *Service {
	return &Service{
		ledger:   ledger,
		adapters: adapters,
		config:   config,
		logger:   logger,
		validate: validator.New(),
		slots:    newSlotStore(),
		signals:  newSignalStore(),
	}
}

// Submit validates the request, claims the user's exclusivity slot, creates
// the ledger record and schedules the migration task. Returns immediately
// with the new job ID.
func (s *Service) Submit(ctx context.Context, req *models.MigrationRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if !s.slots.TryAcquire(req.UserID) {
		s.logger.Warn().
			Str("user_id", req.UserID).
			Msg("Submission rejected - migration already running for user")
		return "", ErrAlreadyRunning
	}

	jobID := common.NewJobID()

	if _, err := s.ledger.CreateJob(ctx, jobID, req.UserID, req.UserEmail, req.MigrationType); err != nil {
		// Job record creation failed: release the slot, nothing was scheduled
		s.slots.Release(req.UserID)
		return "", fmt.Errorf("failed to start migration: %w", err)
	}

	s.signals.Register(jobID)
	s.trackStart()

	request := *req
	s.wg.Add(1)
	common.SafeGo(s.logger, "migration-"+jobID, func() {
		defer s.wg.Done()
		s.runTask(jobID, &request)
	})

	s.logger.Info().
		Str("job_id", jobID).
		Str("user_id", req.UserID).
		Str("migration_type", string(req.MigrationType)).
		Msg("Migration started")

	return jobID, nil
}

// Pause requests a pause. The running task discovers the signal at its next
// poll point; there is no immediate interrupt.
func (s *Service) Pause(ctx context.Context, jobID string) error {
	if err := s.checkKnown(ctx, jobID); err != nil {
		return err
	}
	s.signals.RequestPause(jobID)

	if _, err := s.ledger.Pause(ctx, jobID); err != nil {
		// Fire-and-forget relative to the running task
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record paused status")
	}
	return nil
}

// Resume clears a pause request
func (s *Service) Resume(ctx context.Context, jobID string) error {
	if err := s.checkKnown(ctx, jobID); err != nil {
		return err
	}
	s.signals.ClearPause(jobID)

	if _, err := s.ledger.Resume(ctx, jobID); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record resumed status")
	}
	return nil
}

// Cancel requests cancellation. Cancel dominates pause: a paused task
// unblocks and observes the cancellation at its next poll tick.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	if err := s.checkKnown(ctx, jobID); err != nil {
		return err
	}
	s.signals.RequestCancel(jobID)

	if _, err := s.ledger.Cancel(ctx, jobID); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record cancelled status")
	}
	return nil
}

// Stats returns a snapshot of running work
func (s *Service) Stats() Stats {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	return Stats{
		ActiveJobs: active,
		HeldSlots:  s.slots.Count(),
	}
}

// Wait blocks until all scheduled tasks have finished. Used by shutdown
// and tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// checkKnown accepts control requests for running jobs, and for jobs the
// ledger still knows about (the signal write becomes a no-op after the task
// exits, but the ledger update may still apply).
func (s *Service) checkKnown(ctx context.Context, jobID string) error {
	if s.signals.Known(jobID) {
		return nil
	}
	if _, err := s.ledger.GetJob(ctx, jobID); err != nil {
		return ErrUnknownJob
	}
	return nil
}

func (s *Service) trackStart() {
	s.mu.Lock()
	s.active++
	s.mu.Unlock()
}

func (s *Service) trackDone() {
	s.mu.Lock()
	s.active--
	s.mu.Unlock()
}
