package status

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mzuther/lalikan/internal/logging"
)

// hub tracks connected WebSocket clients and pushes status updates to
// all of them, the same connection-map-plus-mutex shape ws.go used for
// its jobs/system/logs feeds, collapsed to a single feed here.
type hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

func (h *hub) broadcast(v interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(v); err != nil {
			logging.Errorf("status: failed to write to websocket client: %v", err)
		}
	}
}

// handleStatusWebSocket upgrades the connection and streams the current
// snapshot of every job every 30 seconds. It sends no ping frames; a
// disconnected client is noticed when its read loop fails.
func (s *Server) handleStatusWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Errorf("status: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.hub.add(conn)
	defer s.hub.remove(conn)

	s.pushSnapshot(conn)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.pushSnapshot(conn)
		}
	}
}

func (s *Server) pushSnapshot(conn *websocket.Conn) {
	result := make(map[string]interface{}, len(s.Jobs))
	for _, job := range s.Jobs {
		if snap, ok := s.Snapshots(job); ok {
			result[job] = snap
		}
	}
	if err := conn.WriteJSON(map[string]interface{}{"type": "status_update", "data": result}); err != nil {
		logging.Errorf("status: failed to push snapshot: %v", err)
	}
}
