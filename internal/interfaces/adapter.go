package interfaces

import (
	"context"

	"github.com/unwan/migro/internal/models"
)

// Item is one migratable unit (a mail message, contact, calendar event or
// drive file). The core never inspects Payload; it only counts items.
type Item struct {
	ID      string                 `json:"id"`
	Folder  string                 `json:"folder,omitempty"` // source collection, e.g. mail folder
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// PushResult reports a per-batch success count from the destination provider
type PushResult struct {
	Migrated int `json:"migrated"`
}

// Adapter is the provider-specific component performing actual data
// discovery and transfer. Adapters are potentially slow, fallible remote
// calls with no retry contract of their own; the orchestrator treats a
// single failure as fatal for the job.
type Adapter interface {
	// Discover enumerates all source items, optionally scoped to one folder
	Discover(ctx context.Context, sourceToken, folder string) ([]Item, error)

	// Push writes a batch of items to the destination provider
	Push(ctx context.Context, batch []Item, destToken string) (PushResult, error)
}

// AdapterRegistry resolves the adapter for a migration type.
// The composite "all" type has no adapter of its own.
type AdapterRegistry interface {
	Adapter(migrationType models.MigrationType) (Adapter, bool)
}
