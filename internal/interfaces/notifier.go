package interfaces

import (
	"github.com/unwan/migro/internal/models"
)

// Notifier pushes job snapshots to interested subscribers. Delivery is
// best-effort: failures are logged and never affect the ledger write that
// triggered them. No buffering or replay is guaranteed.
type Notifier interface {
	NotifyJob(ownerID string, job *models.MigrationJob)
}
