// -----------------------------------------------------------------------
// Application composition root - wires storage, ledger, orchestrator,
// notification hub and handlers in dependency order
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/adapters/simulated"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/handlers"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/ledger"
	"github.com/unwan/migro/internal/orchestrator"
	"github.com/unwan/migro/internal/scheduler"
	badgerstore "github.com/unwan/migro/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage layer
	BadgerDB   *badgerstore.BadgerDB
	JobStorage interfaces.JobStorage

	// Core services
	Ledger       *ledger.Service
	Orchestrator *orchestrator.Service
	Heartbeat    *scheduler.Heartbeat

	// HTTP handlers
	WSHandler        *handlers.WebSocketHandler
	MigrationHandler *handlers.MigrationHandler
	StatusHandler    *handlers.StatusHandler
}

// New initializes the application with all dependencies.
// Adapters may be nil, in which case the simulated development
// registry is used.
func New(cfg *common.Config, logger arbor.ILogger, adapters interfaces.AdapterRegistry) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Storage layer (Badger)
	db, err := badgerstore.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.BadgerDB = db
	app.JobStorage = badgerstore.NewJobStorage(db, logger)
	logger.Debug().
		Str("storage", "badger").
		Str("path", cfg.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// WebSocket hub must exist before the ledger so every job save
	// can be pushed to connected clients
	app.WSHandler = handlers.NewWebSocketHandler(logger, &cfg.WebSocket)

	// Job ledger (persistence + status propagation)
	app.Ledger = ledger.NewService(app.JobStorage, app.WSHandler, logger)
	logger.Debug().Msg("Job ledger initialized")

	// Provider adapters
	if adapters == nil {
		adapters = orchestrator.AdapterMap(simulated.NewRegistry())
		logger.Warn().Msg("No provider adapters supplied, using simulated adapters")
	}

	// Migration orchestrator
	app.Orchestrator = orchestrator.NewService(app.Ledger, adapters, &cfg.Migration, logger)
	logger.Debug().Msg("Migration orchestrator initialized")

	// HTTP handlers
	app.MigrationHandler = handlers.NewMigrationHandler(app.Orchestrator, logger)
	app.StatusHandler = handlers.NewStatusHandler(app.Ledger, app.Orchestrator, app.JobStorage, logger)

	// Heartbeat broadcaster
	app.Heartbeat = scheduler.NewHeartbeat(app.Orchestrator, app.JobStorage, app.WSHandler, logger)
	if cfg.Scheduler.Enabled {
		if err := app.Heartbeat.Start(cfg.Scheduler.Schedule); err != nil {
			logger.Warn().Err(err).Msg("Failed to start heartbeat broadcaster")
		} else {
			logger.Debug().Str("schedule", cfg.Scheduler.Schedule).Msg("Heartbeat broadcaster started")
		}
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Msg("Application initialization complete")

	return app, nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop accepting heartbeat ticks first
	if a.Heartbeat != nil {
		a.Heartbeat.Stop()
		a.Logger.Info().Msg("Heartbeat broadcaster stopped")
	}

	// Wait for running migration tasks to finish reporting
	if a.Orchestrator != nil {
		a.Orchestrator.Wait()
		a.Logger.Info().Msg("Migration tasks drained")
	}

	// Close storage last
	if a.BadgerDB != nil {
		if err := a.BadgerDB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
