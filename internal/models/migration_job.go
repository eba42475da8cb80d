// -----------------------------------------------------------------------
// Migration Job - Durable record of a user's migration, owned by the ledger
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a migration job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusPaused     JobStatus = "paused"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// validTransitions is the state machine for job status changes.
// Terminal states (completed, failed, cancelled) have no outgoing edges.
// The running task is the single writer of terminal outcomes, so a paused
// job must still accept failed: a push already in flight when the pause
// landed can fail, and its task has to be able to say so.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusInProgress, JobStatusCancelled, JobStatusFailed},
	JobStatusInProgress: {JobStatusPaused, JobStatusCancelled, JobStatusCompleted, JobStatusFailed},
	JobStatusPaused:     {JobStatusInProgress, JobStatusCancelled, JobStatusFailed},
}

// IsTerminal returns true for states that accept no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CanTransitionTo reports whether a transition from s to next is legal.
// A same-status write is allowed while non-terminal (progress refresh).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MigrationJob is the unit of work and its record of truth.
// Created once at submission, mutated in place by the orchestrator through
// the ledger, never deleted by the core.
type MigrationJob struct {
	JobID          string        `json:"job_id" badgerhold:"key"`
	UserID         string        `json:"user_id" badgerhold:"index"`
	UserEmail      string        `json:"user_email"`
	MigrationType  MigrationType `json:"migration_type"`
	Status         JobStatus     `json:"status"`
	Progress       int           `json:"progress"` // 0-100, derived from item counts
	TotalItems     int           `json:"total_items"`
	ProcessedItems int           `json:"processed_items"`
	Message        string        `json:"message"`
	StartedAt      time.Time     `json:"started_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewMigrationJob creates a pending job record
func NewMigrationJob(jobID, userID, userEmail string, migrationType MigrationType) *MigrationJob {
	now := time.Now()
	return &MigrationJob{
		JobID:          jobID,
		UserID:         userID,
		UserEmail:      userEmail,
		MigrationType:  migrationType,
		Status:         JobStatusPending,
		Progress:       0,
		TotalItems:     0,
		ProcessedItems: 0,
		Message:        "Migration job created",
		StartedAt:      now,
		UpdatedAt:      now,
	}
}

// IsTerminal returns true if the job has reached a terminal status
func (j *MigrationJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsActive returns true while the job occupies its owner's exclusivity slot
func (j *MigrationJob) IsActive() bool {
	return !j.IsTerminal()
}

// RecomputeProgress derives the progress percent from item counts within the
// given phase band. Caller-supplied progress values are never trusted.
func (j *MigrationJob) RecomputeProgress(phase Phase) {
	j.Progress = phase.Progress(j.ProcessedItems, j.TotalItems)
}
