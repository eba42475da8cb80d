package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/models"
	"github.com/unwan/migro/internal/orchestrator"
)

// MigrationHandler handles migration submission and control requests
type MigrationHandler struct {
	orchestrator *orchestrator.Service
	logger       arbor.ILogger
}

// NewMigrationHandler creates a new migration handler
func NewMigrationHandler(orchestratorService *orchestrator.Service, logger arbor.ILogger) *MigrationHandler {
	return &MigrationHandler{
		orchestrator: orchestratorService,
		logger:       logger,
	}
}

// SubmitHandler accepts a migration request and schedules it
// POST /api/migrations
func (h *MigrationHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.MigrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	jobID, err := h.orchestrator.Submit(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrAlreadyRunning):
			WriteJSON(w, http.StatusConflict, models.MigrationResponse{
				Status:  "failed",
				Message: "You already have a migration in progress. Please wait for it to complete.",
			})
		case errors.Is(err, orchestrator.ErrValidation):
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to start migration")
			WriteError(w, http.StatusInternalServerError, "Failed to start migration")
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, models.MigrationResponse{
		Status:  "started",
		Message: "Migration started successfully",
		JobID:   jobID,
	})
}

// ControlHandler routes pause/resume/cancel requests
// POST /api/migrations/{id}/pause|resume|cancel
func (h *MigrationHandler) ControlHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/migrations/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	jobID, action := parts[0], parts[1]

	var err error
	switch action {
	case "pause":
		err = h.orchestrator.Pause(r.Context(), jobID)
	case "resume":
		err = h.orchestrator.Resume(r.Context(), jobID)
	case "cancel":
		err = h.orchestrator.Cancel(r.Context(), jobID)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownJob) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Str("action", action).Msg("Control request failed")
		WriteError(w, http.StatusInternalServerError, "Control request failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"job_id": jobID,
		"action": action,
	})
}
