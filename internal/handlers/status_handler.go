package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/ledger"
	"github.com/unwan/migro/internal/orchestrator"
)

// StatusHandler serves the job read API and system status endpoints
type StatusHandler struct {
	ledger       interfaces.Ledger
	orchestrator *orchestrator.Service
	storage      interfaces.JobStorage
	logger       arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(ledgerService interfaces.Ledger, orchestratorService *orchestrator.Service, storage interfaces.JobStorage, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		ledger:       ledgerService,
		orchestrator: orchestratorService,
		storage:      storage,
		logger:       logger,
	}
}

// GetJobHandler returns a single job for its owner
// GET /api/migrations/{id}?user_id=<owner>
func (h *StatusHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/migrations/")
	userID := r.URL.Query().Get("user_id")
	if jobID == "" || userID == "" {
		WriteError(w, http.StatusBadRequest, "job id and user_id are required")
		return
	}

	job, err := h.ledger.GetJobForOwner(r.Context(), jobID, userID)
	if err != nil {
		// Denied and not-found look identical to callers so a non-owner
		// cannot probe for a job's existence
		if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrDenied) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// ListJobsHandler returns the caller's jobs, most recently started first
// GET /api/migrations?user_id=<owner>
func (h *StatusHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	jobs, err := h.ledger.ListJobsForOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetStatusHandler returns operational statistics
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.orchestrator.Stats()

	totalJobs, err := h.storage.CountJobs(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count jobs")
	}
	activeJobs, err := h.storage.CountActiveJobs(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count active jobs")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":      "migro",
		"status":       "running",
		"running_jobs": stats.ActiveJobs,
		"held_slots":   stats.HeldSlots,
		"active_jobs":  activeJobs,
		"total_jobs":   totalJobs,
	})
}

// HealthHandler returns a basic liveness response
// GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler returns build version information
// GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
	})
}

// NotFoundHandler returns a JSON 404 for unmatched API routes
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found")
}
