package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single WebSocket write; a stuck client is dropped
// rather than allowed to stall the broadcast.
const writeTimeout = 5 * time.Second

// Hub fans out completed cycle samples to connected dashboard clients.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHub creates new live feed hub
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The cookie-based auth middleware already ran; same-origin
			// enforcement would break access via IP on the local network.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /api/live and upgrades the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("[LIVE] WebSocket upgrade failed: %v", err)
		}
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Printf("[LIVE] Client connected (%d total)", count)
	}

	// Reader goroutine: clients never send data, but reading is required
	// to process control frames and notice disconnects.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends v as JSON to every connected client. Clients that fail
// the write are dropped.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("[LIVE] Failed to marshal broadcast: %v", err)
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// remove closes and unregisters a client connection.
func (h *Hub) remove(conn *websocket.Conn) {
	conn.Close()

	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()

	if ok && h.logger != nil {
		h.logger.Printf("[LIVE] Client disconnected (%d total)", count)
	}
}
