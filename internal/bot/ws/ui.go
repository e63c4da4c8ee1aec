package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// UIEvent is pushed to every connected control panel.
type UIEvent struct {
	Type  string      `json:"type"`
	Title string      `json:"title,omitempty"`
	Body  string      `json:"body,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// UIHub manages control panel connections.
type UIHub struct {
	upgrader websocket.Upgrader
	logger   Logger

	mu    sync.RWMutex
	conns map[string]*websocket.Conn
	wmu   map[string]*sync.Mutex
}

// NewUIHub constructs UI hub.
func NewUIHub(logger Logger) *UIHub {
	return &UIHub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		conns:    make(map[string]*websocket.Conn),
		wmu:      make(map[string]*sync.Mutex),
	}
}

// Count returns the number of connected panels.
func (h *UIHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ServeWS handles control panel connections.
func (h *UIHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("ui ws upgrade failed: %v", err)
		return
	}
	id := uuid.NewString()

	h.mu.Lock()
	h.conns[id] = conn
	h.wmu[id] = &sync.Mutex{}
	h.mu.Unlock()

	go h.readLoop(id, conn)
}

func (h *UIHub) readLoop(id string, conn *websocket.Conn) {
	defer func() {
		conn.Close()
		h.mu.Lock()
		delete(h.conns, id)
		delete(h.wmu, id)
		h.mu.Unlock()
	}()

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if mt == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(msg)), "ping") {
			h.safeWrite(id, func(conn *websocket.Conn) error {
				return conn.WriteMessage(websocket.TextMessage, []byte("pong"))
			})
		}
	}
}

func (h *UIHub) safeWrite(id string, writer func(*websocket.Conn) error) {
	h.mu.RLock()
	conn := h.conns[id]
	mu := h.wmu[id]
	h.mu.RUnlock()
	if conn == nil || mu == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writer(conn); err != nil {
		h.logger.Errorf("ui %s write failed: %v", id, err)
	}
}

// Broadcast sends the same event to all connected panels.
func (h *UIHub) Broadcast(event UIEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.safeWrite(id, func(conn *websocket.Conn) error {
			return conn.WriteMessage(websocket.TextMessage, data)
		})
	}
}

// Notify mirrors a driver notification to the panels. It never fails.
func (h *UIHub) Notify(ctx context.Context, title, body string) error {
	h.Broadcast(UIEvent{Type: "notification", Title: title, Body: body})
	return nil
}
