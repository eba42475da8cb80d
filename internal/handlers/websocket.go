// -----------------------------------------------------------------------
// Status Notification - websocket push of job snapshots to subscribers
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/unwan/migro/internal/common"
	"github.com/unwan/migro/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the JSON frame sent to websocket clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// JobUpdatePayload carries a job snapshot plus the event timestamp
type JobUpdatePayload struct {
	Job       *models.MigrationJob `json:"job"`
	Timestamp time.Time            `json:"timestamp"`
}

// client is one connected websocket subscriber. userID is empty for
// global observers; those receive broadcast frames only.
type client struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex // serializes writes to conn
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebSocketHandler maintains subscriber connections and pushes every
// ledger state change to them. Delivery is best-effort: a failed write is
// logged and the ledger write that triggered it is unaffected. There is no
// buffering or replay; late subscribers fall back to polling the read API.
type WebSocketHandler struct {
	logger           arbor.ILogger
	mu               sync.RWMutex
	clients          map[*client]bool
	serverInstanceID string // clients use this to detect server restart
}

// NewWebSocketHandler creates the notification hub
func NewWebSocketHandler(logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	if config != nil {
		if config.ReadBufferSize > 0 {
			upgrader.ReadBufferSize = config.ReadBufferSize
		}
		if config.WriteBufferSize > 0 {
			upgrader.WriteBufferSize = config.WriteBufferSize
		}
	}

	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*client]bool),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket upgrades the connection and registers the subscriber.
// GET /ws?user_id=<id> subscribes to that owner's job updates plus global
// frames; GET /ws without user_id receives global frames only.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	c := &client{
		conn:   conn,
		userID: r.URL.Query().Get("user_id"),
	}

	h.mu.Lock()
	h.clients[c] = true
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("user_id", c.userID).
		Msgf("WebSocket client connected (total: %d)", clientCount)

	h.sendHello(c)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// NotifyJob delivers a job snapshot to the owner's connections and a
// global observer frame to everyone. Implements interfaces.Notifier.
func (h *WebSocketHandler) NotifyJob(ownerID string, job *models.MigrationJob) {
	payload := JobUpdatePayload{
		Job:       job,
		Timestamp: time.Now(),
	}

	ownerFrame, err := json.Marshal(WSMessage{Type: "job_update", Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal job_update message")
		return
	}
	globalFrame, err := json.Marshal(WSMessage{Type: "job_event", Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal job_event message")
		return
	}

	for _, c := range h.snapshot() {
		var frame []byte
		switch {
		case c.userID == ownerID:
			frame = ownerFrame
		case c.userID == "":
			frame = globalFrame
		default:
			continue
		}

		if err := c.send(frame); err != nil {
			h.logger.Warn().Err(err).
				Str("job_id", job.JobID).
				Msg("Failed to push job update to client")
		}
	}
}

// BroadcastStats sends an operational status frame to every client
func (h *WebSocketHandler) BroadcastStats(stats interface{}) {
	data, err := json.Marshal(WSMessage{Type: "status", Payload: stats})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal status message")
		return
	}

	for _, c := range h.snapshot() {
		if err := c.send(data); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send status to client")
		}
	}
}

// ClientCount returns the number of connected subscribers
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHandler) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *WebSocketHandler) sendHello(c *client) {
	data, err := json.Marshal(WSMessage{
		Type: "hello",
		Payload: map[string]string{
			"server_instance_id": h.serverInstanceID,
		},
	})
	if err != nil {
		return
	}
	if err := c.send(data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send hello to client")
	}
}
