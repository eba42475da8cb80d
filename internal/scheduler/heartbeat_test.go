package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/models"
	"github.com/unwan/migro/internal/orchestrator"
)

// stubStorage returns fixed counts for broadcast assembly
type stubStorage struct{}

func (stubStorage) SaveJob(ctx context.Context, job *models.MigrationJob) error { return nil }
func (stubStorage) GetJob(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	return nil, nil
}
func (stubStorage) ListJobsByOwner(ctx context.Context, userID string) ([]*models.MigrationJob, error) {
	return nil, nil
}
func (stubStorage) CountJobs(ctx context.Context) (int, error)       { return 7, nil }
func (stubStorage) CountActiveJobs(ctx context.Context) (int, error) { return 2, nil }
func (stubStorage) Close() error                                     { return nil }

// recordingBroadcaster captures broadcast payloads
type recordingBroadcaster struct {
	mu    sync.Mutex
	stats []interface{}
}

func (b *recordingBroadcaster) BroadcastStats(stats interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = append(b.stats, stats)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stats)
}

func (b *recordingBroadcaster) last() interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.stats) == 0 {
		return nil
	}
	return b.stats[len(b.stats)-1]
}

func newTestHeartbeat() (*Heartbeat, *recordingBroadcaster) {
	logger := arbor.NewLogger()
	orchestratorSvc := orchestrator.NewService(nil, orchestrator.AdapterMap{}, &common.MigrationConfig{}, logger)
	broadcaster := &recordingBroadcaster{}
	return NewHeartbeat(orchestratorSvc, stubStorage{}, broadcaster, logger), broadcaster
}

func TestHeartbeat_Broadcasts(t *testing.T) {
	heartbeat, broadcaster := newTestHeartbeat()

	require.NoError(t, heartbeat.Start("@every 50ms"))
	defer heartbeat.Stop()

	assert.Eventually(t, func() bool {
		return broadcaster.count() >= 1
	}, 3*time.Second, 10*time.Millisecond)

	payload, ok := broadcaster.last().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "migro", payload["service"])
	assert.Equal(t, 7, payload["total_jobs"])
	assert.Equal(t, 2, payload["active_jobs"])
	assert.Equal(t, 0, payload["running_jobs"])
}

func TestHeartbeat_InvalidSchedule(t *testing.T) {
	heartbeat, _ := newTestHeartbeat()

	assert.Error(t, heartbeat.Start("not a schedule"))
}

func TestHeartbeat_DoubleStart(t *testing.T) {
	heartbeat, _ := newTestHeartbeat()

	require.NoError(t, heartbeat.Start("@every 1h"))
	defer heartbeat.Stop()

	assert.Error(t, heartbeat.Start("@every 1h"))
}

func TestHeartbeat_StopWithoutStart(t *testing.T) {
	heartbeat, _ := newTestHeartbeat()
	heartbeat.Stop()
}
