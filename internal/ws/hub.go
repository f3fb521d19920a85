package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"greenhouse/internal/models"
)

const defaultWriteTimeout = 10 * time.Second

// Hub fans out stored readings to connected websocket subscribers.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*client]struct{}
	writeTimeout time.Duration
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v any, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteJSON(v)
}

// NewHub builds the stream hub.
func NewHub(writeTimeout time.Duration, logger *zap.Logger) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		clients:      make(map[*client]struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Publish sends a reading to every subscriber. Subscribers that fail the
// write are dropped.
func (h *Hub) Publish(reading models.Reading) {
	h.mu.RLock()
	subscribers := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	for _, c := range subscribers {
		if err := c.writeJSON(reading, h.writeTimeout); err != nil {
			h.logger.Debug("dropping stream subscriber", zap.Error(err))
			h.remove(c)
		}
	}
}

// Handler upgrades the request and keeps the subscription open until the
// client disconnects.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}

		c := &client{conn: conn}
		h.add(c)
		h.logger.Info("stream subscriber connected", zap.String("remote", r.RemoteAddr))

		for {
			if _, _, err := conn.NextReader(); err != nil {
				break
			}
		}

		h.remove(c)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		_ = c.conn.Close()
	}
}
