package console

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub pushes every merged-view change to the connected board views. A write
// failure drops the connection: a torn-down view simply stops receiving,
// which is the discard-on-arrival guard this model has instead of real
// request cancellation.
type Hub struct {
	engine Engine
	lg     *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	subID   int
}

func NewHub(engine Engine, lg *logger.Logger) *Hub {
	return &Hub{
		engine:  engine,
		lg:      lg,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Run subscribes the hub to merged-view changes until ctx equivalent
// teardown; call Close to detach.
func (h *Hub) Run() {
	h.subID = h.engine.Subscribe(h.broadcast)
}

func (h *Hub) Close() {
	h.engine.Unsubscribe(h.subID)
	h.mu.Lock()
	for conn := range h.clients {
		_ = conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()
}

func (h *Hub) broadcast(view domain.MergedView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(view); err != nil {
			h.lg.Debug("ws_client_dropped", map[string]any{"error": err.Error()})
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// HandleWS upgrades the request and registers the client. The current view
// is sent immediately so a freshly opened board is not blank until the next
// change.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Warn("ws_upgrade_failed", map[string]any{"error": err.Error()})
		return
	}

	// Registration and the initial send happen under the same lock that
	// broadcast writes under: a reconcile broadcast must not interleave
	// with the initial frame on the same connection.
	h.mu.Lock()
	if err := conn.WriteJSON(h.engine.CurrentView()); err != nil {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[conn] = true
	h.mu.Unlock()

	// Drain (and discard) client frames so closes are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				_ = conn.Close()
				return
			}
		}
	}()
}
