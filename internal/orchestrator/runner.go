package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/models"
)

// errCancelled marks a task that observed its cancel signal and reported
// the terminal status itself
var errCancelled = errors.New("migration cancelled")

// runTask is the asynchronous task body. Slot release and signal cleanup
// run unconditionally on every exit path; a stuck slot would permanently
// block the user from starting new work.
func (s *Service) runTask(jobID string, req *models.MigrationRequest) {
	ctx := context.Background()

	defer func() {
		s.slots.Release(req.UserID)
		s.signals.Clear(jobID)
		s.trackDone()
		s.logger.Debug().Str("job_id", jobID).Msg("Migration task finished, slot released")
	}()

	var err error
	if req.MigrationType.IsComposite() {
		err = s.runComposite(ctx, jobID, req)
	} else {
		err = s.runSingle(ctx, jobID, req, req.MigrationType)
	}

	switch {
	case err == nil:
		// terminal status already reported by the run functions
	case errors.Is(err, errCancelled):
		// cancelled status already reported at the poll point
	default:
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Migration failed")
		s.reportStatus(ctx, jobID, models.JobStatusFailed, 0, fmt.Sprintf("Migration failed: %v", err))
	}
}

// runSingle executes one standalone migration across the full progress band
func (s *Service) runSingle(ctx context.Context, jobID string, req *models.MigrationRequest, migrationType models.MigrationType) error {
	migrated, total, err := s.runPhase(ctx, jobID, req, migrationType, models.FullBand)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("%s migration completed: %d/%d items migrated", migrationType, migrated, total)
	s.reportStatus(ctx, jobID, models.JobStatusCompleted, 100, message)
	return nil
}

// runComposite executes the four sub-migrations sequentially, each mapped
// onto its band from the phase table. A sub-task failure fails the whole
// job; a sub-task cancellation short-circuits the remaining phases.
func (s *Service) runComposite(ctx context.Context, jobID string, req *models.MigrationRequest) error {
	s.reportStatus(ctx, jobID, models.JobStatusInProgress, 5, "Starting full migration")

	for _, phase := range models.CompositePhases() {
		s.reportStatus(ctx, jobID, models.JobStatusInProgress, phase.BaseOffset, fmt.Sprintf("Migrating %s", phase.Type))

		if _, _, err := s.runPhase(ctx, jobID, req, phase.Type, phase); err != nil {
			return err
		}
	}

	s.reportStatus(ctx, jobID, models.JobStatusCompleted, 100, "All migrations completed successfully")
	return nil
}

// runPhase discovers the phase's items and pushes them in fixed-size
// batches, polling the control signals before every batch. Returns the
// migrated and total item counts.
func (s *Service) runPhase(ctx context.Context, jobID string, req *models.MigrationRequest, migrationType models.MigrationType, phase models.Phase) (int, int, error) {
	adapter, ok := s.adapters.Adapter(migrationType)
	if !ok {
		return 0, 0, fmt.Errorf("no adapter registered for migration type %s", migrationType)
	}

	s.reportStatus(ctx, jobID, models.JobStatusInProgress, phase.BaseOffset, fmt.Sprintf("Discovering %s items", migrationType))

	items, err := adapter.Discover(ctx, req.SourceToken, req.Folder)
	if err != nil {
		return 0, 0, fmt.Errorf("%s discovery failed: %w", migrationType, err)
	}

	total := len(items)
	s.reportProgress(ctx, jobID, fmt.Sprintf("Found %d %s items, starting migration", total, migrationType), total, 0, phase)

	if total == 0 {
		return 0, 0, nil
	}

	batchSize, delay := s.batchParams(migrationType)
	// Inter-batch pacing toward the destination provider. The limiter
	// starts with one token so the first batch goes out immediately.
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	migrated := 0
	for i := 0; i < total; i += batchSize {
		if stop := s.pollSignals(ctx, jobID, migrated, total, phase); stop != nil {
			return migrated, total, stop
		}

		if err := limiter.Wait(ctx); err != nil {
			return migrated, total, err
		}

		end := i + batchSize
		if end > total {
			end = total
		}
		batch := items[i:end]

		result, err := adapter.Push(ctx, batch, req.DestToken)
		if err != nil {
			return migrated, total, fmt.Errorf("%s push failed after %d items: %w", migrationType, migrated, err)
		}
		migrated += result.Migrated

		message := fmt.Sprintf("Migrated %d out of %d %s items", migrated, total, migrationType)
		if folder := batch[0].Folder; folder != "" {
			message = fmt.Sprintf("Migrated %d out of %d %s items (%s)", migrated, total, migrationType, folder)
		}
		s.reportProgress(ctx, jobID, message, total, migrated, phase)
	}

	return migrated, total, nil
}

// pollSignals checks cancel, then blocks while paused polling on a fixed
// interval, then re-checks cancel. Cancellation wins eventually even when
// it races a pause-loop tick.
func (s *Service) pollSignals(ctx context.Context, jobID string, processed, total int, phase models.Phase) error {
	if s.signals.CancelRequested(jobID) {
		s.reportStatus(ctx, jobID, models.JobStatusCancelled, phase.Progress(processed, total), "Migration cancelled")
		return errCancelled
	}

	if s.signals.PauseRequested(jobID) {
		s.reportStatus(ctx, jobID, models.JobStatusPaused, phase.Progress(processed, total), "Migration paused")

		for s.signals.PauseRequested(jobID) && !s.signals.CancelRequested(jobID) {
			time.Sleep(s.config.PausePollInterval)
		}

		if s.signals.CancelRequested(jobID) {
			s.reportStatus(ctx, jobID, models.JobStatusCancelled, phase.Progress(processed, total), "Migration cancelled")
			return errCancelled
		}

		s.reportStatus(ctx, jobID, models.JobStatusInProgress, phase.Progress(processed, total), "Migration resumed")
	}

	return nil
}

// batchParams returns the batch size and inter-batch delay for a type
func (s *Service) batchParams(migrationType models.MigrationType) (int, time.Duration) {
	switch migrationType {
	case models.MigrationTypeMail:
		return s.config.MailBatchSize, s.config.MailBatchDelay
	case models.MigrationTypeContacts:
		return s.config.ContactsBatchSize, s.config.ContactsBatchDelay
	case models.MigrationTypeCalendar:
		return s.config.CalendarBatchSize, s.config.CalendarBatchDelay
	case models.MigrationTypeDrive:
		return s.config.DriveBatchSize, s.config.DriveBatchDelay
	default:
		return 10, time.Second
	}
}

// reportStatus sends a best-effort status update to the ledger. Report
// failures never abort the migration itself.
func (s *Service) reportStatus(ctx context.Context, jobID string, status models.JobStatus, progress int, message string) {
	if _, err := s.ledger.UpdateStatus(ctx, jobID, status, progress, message); err != nil {
		s.logger.Warn().Err(err).
			Str("job_id", jobID).
			Str("status", string(status)).
			Msg("Failed to report job status")
	}
}

// reportProgress sends a best-effort progress update with item counts
func (s *Service) reportProgress(ctx context.Context, jobID, message string, total, processed int, phase models.Phase) {
	if _, err := s.ledger.UpdateProgress(ctx, jobID, models.JobStatusInProgress, message, total, processed, phase); err != nil {
		s.logger.Warn().Err(err).
			Str("job_id", jobID).
			Int("processed", processed).
			Int("total", total).
			Msg("Failed to report job progress")
	}
}

// AdapterMap is a simple in-process adapter registry
type AdapterMap map[models.MigrationType]interfaces.Adapter

// Adapter implements interfaces.AdapterRegistry
func (m AdapterMap) Adapter(migrationType models.MigrationType) (interfaces.Adapter, bool) {
	adapter, ok := m[migrationType]
	return adapter, ok
}
