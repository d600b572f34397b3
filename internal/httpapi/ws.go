package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pingdeck/pingdeck/internal/repo"
)

const wsWriteTimeout = 5 * time.Second

// Hub fans current status rows out to connected websocket clients. The
// scheduler publishes after every completed cycle, so a status page
// stays live without polling.
type Hub struct {
	Logger   *zap.Logger
	Results  repo.ResultStore // optional; enables the snapshot on connect
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func statusMessage(rows []repo.StatusRow) map[string]any {
	return map[string]any{"type": "status", "servers": rows}
}

func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		Logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeHTTP upgrades the connection and keeps it registered until the
// peer goes away. A new client gets the current status snapshot right
// away instead of waiting for the next cycle. Inbound messages are
// discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Debug("ws_upgrade_failed", zap.Error(err))
		return
	}

	var rows []repo.StatusRow
	if h.Results != nil {
		if rows, err = h.Results.LatestAll(r.Context()); err != nil {
			h.Logger.Debug("ws_snapshot_failed", zap.Error(err))
			rows = nil
		}
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	if rows != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(statusMessage(rows)); err != nil {
			h.Logger.Debug("ws_write_failed", zap.Error(err))
		}
	}
	h.mu.Unlock()
	h.Logger.Debug("ws_client_connected", zap.String("remote", conn.RemoteAddr().String()))

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish sends the rows to every client. Writes are serialized under
// the hub lock; the scheduler and on-demand probes may publish
// concurrently. Clients that cannot keep up are dropped.
func (h *Hub) Publish(rows []repo.StatusRow) {
	payload := statusMessage(rows)

	h.mu.Lock()
	var failed []*websocket.Conn
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.WriteJSON(payload); err != nil {
			h.Logger.Debug("ws_write_failed", zap.Error(err))
			failed = append(failed, c)
		}
	}
	h.mu.Unlock()

	for _, c := range failed {
		h.drop(c)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()
}
