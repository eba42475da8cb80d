package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/models"
)

func dialTestClient(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleWebSocket_HelloAndJobUpdate(t *testing.T) {
	hub := NewWebSocketHandler(arbor.NewLogger(), nil)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	owner := dialTestClient(t, server, "?user_id=user1")

	hello := readFrame(t, owner)
	assert.Equal(t, "hello", hello.Type)

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	job := models.NewMigrationJob("job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	job.Status = models.JobStatusInProgress
	job.Progress = 43
	hub.NotifyJob("user1", job)

	frame := readFrame(t, owner)
	require.Equal(t, "job_update", frame.Type)

	payload, err := json.Marshal(frame.Payload)
	require.NoError(t, err)
	var update JobUpdatePayload
	require.NoError(t, json.Unmarshal(payload, &update))
	assert.Equal(t, "job_1", update.Job.JobID)
	assert.Equal(t, 43, update.Job.Progress)
}

func TestHandleWebSocket_NonOwnerDoesNotReceiveOwnerFrames(t *testing.T) {
	hub := NewWebSocketHandler(arbor.NewLogger(), nil)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	other := dialTestClient(t, server, "?user_id=user2")
	_ = readFrame(t, other) // hello

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	job := models.NewMigrationJob("job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	hub.NotifyJob("user1", job)

	// The frame never arrives for a different user
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var msg WSMessage
	err := other.ReadJSON(&msg)
	assert.Error(t, err)
}

func TestHandleWebSocket_GlobalObserver(t *testing.T) {
	hub := NewWebSocketHandler(arbor.NewLogger(), nil)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	observer := dialTestClient(t, server, "")
	_ = readFrame(t, observer) // hello

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	job := models.NewMigrationJob("job_1", "user1", "user1@example.com", models.MigrationTypeMail)
	hub.NotifyJob("user1", job)

	frame := readFrame(t, observer)
	assert.Equal(t, "job_event", frame.Type)
}

func TestBroadcastStats(t *testing.T) {
	hub := NewWebSocketHandler(arbor.NewLogger(), nil)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dialTestClient(t, server, "?user_id=user1")
	_ = readFrame(t, conn) // hello

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastStats(map[string]int{"running_jobs": 2})

	frame := readFrame(t, conn)
	assert.Equal(t, "status", frame.Type)
}
