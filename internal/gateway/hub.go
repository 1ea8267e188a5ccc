package gateway

import (
	"log/slog"
	"sync"
)

// Hub fans dashboard events out to every connected viewer. Broadcast
// never blocks on a slow connection.
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]*conn
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "dashboard-hub"),
		conns:  make(map[string]*conn),
	}
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("dashboard connected", "conn_id", c.id, "viewers", count)
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("dashboard disconnected", "conn_id", id, "viewers", count)
}

// Broadcast delivers the event to every viewer. With no viewers this is a
// no-op.
func (h *Hub) Broadcast(ev *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.conns {
		c.push(ev)
	}
}

func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
