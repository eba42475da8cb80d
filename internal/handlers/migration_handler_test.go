package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/interfaces"
	"github.com/unwan/migro/internal/ledger"
	"github.com/unwan/migro/internal/models"
	"github.com/unwan/migro/internal/orchestrator"
)

// memStorage is an in-memory JobStorage for handler tests
type memStorage struct {
	mu   sync.Mutex
	jobs map[string]models.MigrationJob
}

func newMemStorage() *memStorage {
	return &memStorage{jobs: make(map[string]models.MigrationJob)}
}

func (m *memStorage) SaveJob(ctx context.Context, job *models.MigrationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.JobID] = *job
	return nil
}

func (m *memStorage) GetJob(ctx context.Context, jobID string) (*models.MigrationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	j := job
	return &j, nil
}

func (m *memStorage) ListJobsByOwner(ctx context.Context, userID string) ([]*models.MigrationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.MigrationJob
	for _, job := range m.jobs {
		if job.UserID == userID {
			j := job
			result = append(result, &j)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result, nil
}

func (m *memStorage) CountJobs(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs), nil
}

func (m *memStorage) CountActiveJobs(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, job := range m.jobs {
		if !job.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (m *memStorage) Close() error { return nil }

// instantAdapter migrates a fixed item set with no delay
type instantAdapter struct {
	itemCount int
}

func (a *instantAdapter) Discover(ctx context.Context, sourceToken, folder string) ([]interfaces.Item, error) {
	items := make([]interfaces.Item, a.itemCount)
	for i := range items {
		items[i] = interfaces.Item{ID: "item", Folder: folder}
	}
	return items, nil
}

func (a *instantAdapter) Push(ctx context.Context, batch []interfaces.Item, destToken string) (interfaces.PushResult, error) {
	return interfaces.PushResult{Migrated: len(batch)}, nil
}

func testMigrationConfig() *common.MigrationConfig {
	return &common.MigrationConfig{
		MailBatchSize:      10,
		ContactsBatchSize:  2,
		CalendarBatchSize:  5,
		DriveBatchSize:     3,
		MailBatchDelay:     time.Millisecond,
		ContactsBatchDelay: time.Millisecond,
		CalendarBatchDelay: time.Millisecond,
		DriveBatchDelay:    time.Millisecond,
		PausePollInterval:  5 * time.Millisecond,
	}
}

func newTestHandlers(t *testing.T) (*MigrationHandler, *StatusHandler, *orchestrator.Service, *ledger.Service) {
	t.Helper()

	logger := arbor.NewLogger()
	storage := newMemStorage()
	ledgerSvc := ledger.NewService(storage, nil, logger)
	orchestratorSvc := orchestrator.NewService(ledgerSvc, orchestrator.AdapterMap{
		models.MigrationTypeMail: &instantAdapter{itemCount: 23},
	}, testMigrationConfig(), logger)

	return NewMigrationHandler(orchestratorSvc, logger),
		NewStatusHandler(ledgerSvc, orchestratorSvc, storage, logger),
		orchestratorSvc,
		ledgerSvc
}

func submitBody() string {
	return `{"user_id":"user1","user_email":"user1@example.com","migration_type":"mail","source_token":"src","dest_token":"dst"}`
}

func TestSubmitHandler(t *testing.T) {
	migrationHandler, _, svc, ledgerSvc := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/migrations", strings.NewReader(submitBody()))
	rec := httptest.NewRecorder()
	migrationHandler.SubmitHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp models.MigrationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "started", resp.Status)
	assert.NotEmpty(t, resp.JobID)

	svc.Wait()

	job, err := ledgerSvc.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestSubmitHandler_InvalidBody(t *testing.T) {
	migrationHandler, _, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/migrations", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	migrationHandler.SubmitHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitHandler_ValidationError(t *testing.T) {
	migrationHandler, _, _, _ := newTestHandlers(t)

	body := `{"user_id":"user1","user_email":"bad-email","migration_type":"mail"}`
	req := httptest.NewRequest(http.MethodPost, "/api/migrations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	migrationHandler.SubmitHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitHandler_MethodNotAllowed(t *testing.T) {
	migrationHandler, _, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/migrations", nil)
	rec := httptest.NewRecorder()
	migrationHandler.SubmitHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestControlHandler_Cancel(t *testing.T) {
	migrationHandler, _, svc, ledgerSvc := newTestHandlers(t)

	// Create a job directly; the control path only needs a ledger record
	_, err := ledgerSvc.CreateJob(context.Background(), "job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/migrations/job_1/cancel", nil)
	rec := httptest.NewRecorder()
	migrationHandler.ControlHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.Wait()

	job, err := ledgerSvc.GetJob(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)
}

func TestControlHandler_UnknownJob(t *testing.T) {
	migrationHandler, _, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/migrations/job_missing/pause", nil)
	rec := httptest.NewRecorder()
	migrationHandler.ControlHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestControlHandler_UnknownAction(t *testing.T) {
	migrationHandler, _, _, ledgerSvc := newTestHandlers(t)

	_, err := ledgerSvc.CreateJob(context.Background(), "job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/migrations/job_1/restart", nil)
	rec := httptest.NewRecorder()
	migrationHandler.ControlHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobHandler_OwnerAndNonOwner(t *testing.T) {
	_, statusHandler, _, ledgerSvc := newTestHandlers(t)

	_, err := ledgerSvc.CreateJob(context.Background(), "job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	require.NoError(t, err)

	// Owner sees the record
	req := httptest.NewRequest(http.MethodGet, "/api/migrations/job_1?user_id=user1", nil)
	rec := httptest.NewRecorder()
	statusHandler.GetJobHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var job models.MigrationJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, "job_1", job.JobID)

	// Non-owner and missing job get byte-for-byte identical responses
	nonOwner := httptest.NewRecorder()
	statusHandler.GetJobHandler(nonOwner, httptest.NewRequest(http.MethodGet, "/api/migrations/job_1?user_id=user2", nil))

	missing := httptest.NewRecorder()
	statusHandler.GetJobHandler(missing, httptest.NewRequest(http.MethodGet, "/api/migrations/job_missing?user_id=user2", nil))

	assert.Equal(t, http.StatusNotFound, nonOwner.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), nonOwner.Body.String())
}

func TestListJobsHandler(t *testing.T) {
	_, statusHandler, _, ledgerSvc := newTestHandlers(t)
	ctx := context.Background()

	for _, id := range []string{"job_1", "job_2"} {
		_, err := ledgerSvc.CreateJob(ctx, id, "user1", "user1@example.com", models.MigrationTypeMail)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/migrations?user_id=user1", nil)
	rec := httptest.NewRecorder()
	statusHandler.ListJobsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []models.MigrationJob `json:"jobs"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "job_2", resp.Jobs[0].JobID)

	// Missing user_id is rejected
	rec = httptest.NewRecorder()
	statusHandler.ListJobsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/migrations", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatusHandler(t *testing.T) {
	_, statusHandler, _, ledgerSvc := newTestHandlers(t)

	_, err := ledgerSvc.CreateJob(context.Background(), "job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	statusHandler.GetStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "migro", resp["service"])
	assert.Equal(t, float64(1), resp["total_jobs"])
	assert.Equal(t, float64(1), resp["active_jobs"])
}
