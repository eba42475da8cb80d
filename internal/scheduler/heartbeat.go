// -----------------------------------------------------------------------
// Heartbeat - periodic operational status broadcast to websocket observers
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/orchestrator"
)

// Broadcaster pushes an operational frame to every connected subscriber
type Broadcaster interface {
	BroadcastStats(stats interface{})
}

// Heartbeat periodically broadcasts orchestrator and ledger statistics on
// the global websocket channel for operational visibility
type Heartbeat struct {
	cron         *cron.Cron
	orchestrator *orchestrator.Service
	storage      interfaces.JobStorage
	broadcaster  Broadcaster
	logger       arbor.ILogger
	entryID      cron.EntryID
	running      bool
}

// NewHeartbeat creates the heartbeat scheduler
func NewHeartbeat(orchestratorService *orchestrator.Service, storage interfaces.JobStorage, broadcaster Broadcaster, logger arbor.ILogger) *Heartbeat {
	return &Heartbeat{
		cron:         cron.New(),
		orchestrator: orchestratorService,
		storage:      storage,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

// Start begins broadcasting on the given cron schedule (e.g. "@every 15s")
func (h *Heartbeat) Start(schedule string) error {
	if h.running {
		return fmt.Errorf("heartbeat already running")
	}

	entryID, err := h.cron.AddFunc(schedule, h.broadcast)
	if err != nil {
		return fmt.Errorf("invalid heartbeat schedule %q: %w", schedule, err)
	}
	h.entryID = entryID
	h.cron.Start()
	h.running = true

	h.logger.Info().Str("schedule", schedule).Msg("Status heartbeat started")
	return nil
}

// Stop halts the broadcast schedule and waits for any in-flight run
func (h *Heartbeat) Stop() {
	if !h.running {
		return
	}
	ctx := h.cron.Stop()
	<-ctx.Done()
	h.running = false
	h.logger.Info().Msg("Status heartbeat stopped")
}

func (h *Heartbeat) broadcast() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := h.orchestrator.Stats()

	totalJobs, err := h.storage.CountJobs(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Heartbeat failed to count jobs")
	}
	activeJobs, err := h.storage.CountActiveJobs(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Heartbeat failed to count active jobs")
	}

	h.broadcaster.BroadcastStats(map[string]interface{}{
		"service":      "migro",
		"running_jobs": stats.ActiveJobs,
		"held_slots":   stats.HeldSlots,
		"active_jobs":  activeJobs,
		"total_jobs":   totalJobs,
		"timestamp":    time.Now(),
	})
}
