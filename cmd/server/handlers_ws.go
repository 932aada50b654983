package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST API is already open to any origin; the socket follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub tracks connected progress listeners and pushes status snapshots
// to all of them.
type wsHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[*websocket.Conn]bool)}
}

func (h *wsHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.Close()
}

// broadcast sends a status snapshot to every listener. A write failure
// drops that connection; the others are unaffected.
func (h *wsHub) broadcast(v interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteJSON(v); err != nil {
			delete(h.conns, c)
			c.Close()
		}
	}
}

// handleAnalyzeWS upgrades the connection and streams analysis progress.
// The first message is the current status, so late subscribers catch up.
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	s.wsHub.add(conn)
	if err := conn.WriteJSON(s.analyzeStatus.snapshot()); err != nil {
		s.wsHub.remove(conn)
		return
	}

	// Drain reads so client close frames are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.wsHub.remove(conn)
				return
			}
		}
	}()
}
