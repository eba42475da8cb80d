// -----------------------------------------------------------------------
// Simulated adapters - in-process provider stand-ins for development mode
// -----------------------------------------------------------------------

package simulated

import (
	"context"
	"fmt"
	"time"

	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/models"
)

// Adapter fabricates a fixed number of source items and accepts every
// push after a short delay. It lets the service run end to end without
// real provider credentials; deployments replace it with protocol
// adapters for the actual providers.
type Adapter struct {
	migrationType models.MigrationType
	itemCount     int
	pushDelay     time.Duration
}

// New creates a simulated adapter producing itemCount items
func New(migrationType models.MigrationType, itemCount int, pushDelay time.Duration) *Adapter {
	return &Adapter{
		migrationType: migrationType,
		itemCount:     itemCount,
		pushDelay:     pushDelay,
	}
}

// Discover returns the synthetic item set, optionally scoped to a folder
func (a *Adapter) Discover(ctx context.Context, sourceToken, folder string) ([]interfaces.Item, error) {
	items := make([]interfaces.Item, a.itemCount)
	for i := range items {
		items[i] = interfaces.Item{
			ID:     fmt.Sprintf("%s-item-%d", a.migrationType, i+1),
			Folder: folder,
		}
	}
	return items, nil
}

// Push accepts the whole batch after the configured delay
func (a *Adapter) Push(ctx context.Context, batch []interfaces.Item, destToken string) (interfaces.PushResult, error) {
	if a.pushDelay > 0 {
		select {
		case <-time.After(a.pushDelay):
		case <-ctx.Done():
			return interfaces.PushResult{}, ctx.Err()
		}
	}
	return interfaces.PushResult{Migrated: len(batch)}, nil
}

// NewRegistry returns a registry with simulated adapters for every
// single-type migration
func NewRegistry() map[models.MigrationType]interfaces.Adapter {
	return map[models.MigrationType]interfaces.Adapter{
		models.MigrationTypeMail:     New(models.MigrationTypeMail, 40, 50*time.Millisecond),
		models.MigrationTypeContacts: New(models.MigrationTypeContacts, 12, 20*time.Millisecond),
		models.MigrationTypeCalendar: New(models.MigrationTypeCalendar, 15, 20*time.Millisecond),
		models.MigrationTypeDrive:    New(models.MigrationTypeDrive, 9, 50*time.Millisecond),
	}
}
