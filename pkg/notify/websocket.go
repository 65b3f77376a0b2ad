// Package notify delivers order lifecycle notifications to subscribed
// websocket clients. Delivery is fire and forget; a slow client drops
// messages rather than blocking the hub.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/guardianswap/bridge-middleware/internal/metrics"
	"github.com/guardianswap/bridge-middleware/pkg/chainio"
)

const (
	clientSendBuffer = 64
	writeDeadline    = 10 * time.Second
	readDeadline     = 60 * time.Second
	maxReadBytes     = 512
)

// Message is the wire format pushed to websocket clients.
type Message struct {
	Type      string           `json:"type"`
	Severity  chainio.Severity `json:"severity"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans notifications out to connected websocket clients and implements
// the notification sink consumed by the orchestration core.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a notification hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Notify broadcasts one notification to every connected client.
func (h *Hub) Notify(severity chainio.Severity, message string) {
	metrics.NotificationsTotal.WithLabelValues(string(severity)).Inc()

	payload, err := json.Marshal(Message{
		Type:      "notification",
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Client buffer full, drop instead of blocking the caller.
			h.logger.Debug("Dropping notification for slow client")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("Websocket client connected", zap.Int("clients", h.ClientCount()))

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) writeLoop(c *client) {
	defer h.remove(c)
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readLoop drains inbound frames so pings and close frames are processed.
// Clients are subscribers only; inbound payloads are discarded.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("Websocket read error", zap.Error(err))
			}
			return
		}
	}
}
