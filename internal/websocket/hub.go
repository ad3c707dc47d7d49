package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"nbacli/internal/infrastructure"
)

// Message type constants shared with the browser client.
const (
	TypeConnection = "connection"
	TypeProgress   = "progress"
	TypeError      = "error"
	TypeDataUpdate = "data_update"
	TypeLog        = "log"

	// Message levels
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Hub maintains the set of active clients and broadcasts run events to them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages destined for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	// Counters surfaced by GetHubMetrics
	totalConnections  int64
	activeConnections int64
	messagesSent      int64
	messagesReceived  int64
	connectionErrors  int64

	quit        chan struct{}
	running     bool
	metricsQuit chan struct{}
}

// NewHub creates a hub. A nil logger falls back to the process logger.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		logger:      logger,
		quit:        make(chan struct{}),
		metricsQuit: make(chan struct{}),
	}
}

// Start launches the hub loop and metrics reporting. Calling Start twice
// is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
}

// Run is the hub's main loop. It owns the clients map transitions.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.activeConnections = int64(count)
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}

			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			GetMetrics().RecordConnection()
			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordConnection(ctx, client.id, client.remoteAddr)
				otelMetrics.RecordClientCount(ctx, int64(count))
			}

			// Greet the new client so the browser can show its
			// connection state before the first run event arrives.
			connMsg := map[string]interface{}{
				"type": TypeConnection,
				"data": map[string]interface{}{
					"status":    "connected",
					"message":   "connected to run event stream",
					"client_id": client.id,
				},
				"timestamp": time.Now().Format(time.RFC3339),
				"trace_id":  client.traceID,
			}

			if jsonData, err := json.Marshal(connMsg); err == nil {
				select {
				case client.send <- jsonData:
				default:
					h.logger.WarnContext(ctx, "connection greeting dropped, client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.activeConnections = int64(count)
				h.mu.Unlock()

				ctx := context.Background()
				if client.traceID != "" {
					ctx = infrastructure.WithTraceID(ctx, client.traceID)
				}

				h.logger.InfoContext(ctx, "client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))

				GetMetrics().RecordDisconnection(time.Since(client.connectedAt))
				if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
					otelMetrics.RecordDisconnection(ctx, client.id, time.Since(client.connectedAt), "normal")
					otelMetrics.RecordClientCount(ctx, int64(count))
				}
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			successCount := 0
			failCount := 0

			for _, client := range clients {
				select {
				case client.send <- message:
					successCount++
				default:
					// Slow consumer. Drop the client rather than
					// stalling every other subscriber.
					failCount++
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			h.mu.Lock()
			h.messagesSent += int64(successCount)
			h.mu.Unlock()

			h.logger.Debug("broadcast delivered",
				slog.Int("client_count", len(clients)),
				slog.Int("message_size", len(message)),
				slog.Int("fail_count", failCount))

			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordBroadcast(context.Background(), "broadcast",
					int64(len(clients)), int64(successCount), int64(failCount))
			}
		}
	}
}

// BroadcastUpdate sends a run event to every connected client. It is the
// method the operation status broadcaster calls; eventType carries the
// run event name, step and status are echoed for legacy consumers, and
// data is the snapshot payload.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	h.BroadcastUpdateWithTrace(eventType, step, status, data, "")
}

// BroadcastUpdateWithTrace is BroadcastUpdate with a trace ID stamped on
// the envelope.
func (h *Hub) BroadcastUpdateWithTrace(eventType, step, status string, data interface{}, traceID string) {
	message := map[string]interface{}{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if traceID != "" {
		message["trace_id"] = traceID
	}

	// Snapshot events carry the full state in data; other event types
	// keep the step/status pair on the envelope.
	if eventType != "operation:snapshot" && eventType != "" {
		message["step"] = step
		message["status"] = status
	}

	h.broadcastJSON(message)
}

func (h *Hub) broadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", message["type"].(string)))
		return
	}

	h.broadcast <- jsonData
}

// BroadcastProgress sends a step progress message.
func (h *Hub) BroadcastProgress(step string, progress int, message string) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeProgress,
		"data": map[string]interface{}{
			"step":     step,
			"progress": progress,
			"message":  message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastError sends a structured error message.
func (h *Hub) BroadcastError(code, message, step string, recoverable bool) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeError,
		"data": map[string]interface{}{
			"code":        code,
			"message":     message,
			"step":        step,
			"recoverable": recoverable,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastLog sends a log line to subscribers.
func (h *Hub) BroadcastLog(level, message string) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeLog,
		"data": map[string]interface{}{
			"level":   level,
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastDataUpdate tells clients that files under a stat domain
// changed and which seasons were touched.
func (h *Hub) BroadcastDataUpdate(domain string, seasons []string) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeDataUpdate,
		"data": map[string]interface{}{
			"domain":  domain,
			"seasons": seasons,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastJSON sends a pre-built message envelope.
func (h *Hub) BroadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("error marshaling JSON message", slog.String("error", err.Error()))
		return
	}
	h.broadcast <- jsonData
}

// Broadcast sends a typed payload. It satisfies the service-layer hub
// interface.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastUpdate(messageType, "", "", data)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop shuts the hub down and closes every client send channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	close(h.metricsQuit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// reportMetrics logs hub counters every 30 seconds until Stop.
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.metricsQuit:
			return

		case <-ticker.C:
			h.mu.RLock()
			activeClients := len(h.clients)
			totalConnections := h.totalConnections
			messagesSent := h.messagesSent
			messagesReceived := h.messagesReceived
			h.mu.RUnlock()

			GetMetrics().RecordQueueDepth(int64(len(h.broadcast)))

			h.logger.Info("websocket hub metrics",
				slog.Int("active_clients", activeClients),
				slog.Int64("total_connections", totalConnections),
				slog.Int64("messages_sent", messagesSent),
				slog.Int64("messages_received", messagesReceived),
			)
		}
	}
}

// GetHubMetrics returns current hub counters.
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_received": h.messagesReceived,
		"connection_errors": h.connectionErrors,
	}
}
