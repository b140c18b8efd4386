// Package socket pushes cache snapshots to browser clients over WebSocket.
// Every client receives the full current state on connect and then one
// message per applied snapshot.
package socket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
	"yardops/internal/cache"
	"yardops/pkg/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

// Message is one snapshot of a collection.
type Message struct {
	Type    string            `json:"type"`
	Kind    domain.EntityKind `json:"kind"`
	Version uint64            `json:"version"`
	Records []domain.Record   `json:"records"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	cache   *cache.Cache
	log     *zap.Logger

	upgrader websocket.Upgrader
}

// NewHub returns a hub reading state from c. allowed lists accepted Origin
// values; empty or "*" accepts any.
func NewHub(c *cache.Cache, log *zap.Logger, allowed ...string) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{clients: make(map[*client]struct{}), cache: c, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowed),
	}
	c.OnChange(h.onChange)
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) onChange(kind domain.EntityKind, version uint64) {
	if h.Clients() == 0 {
		return
	}
	payload, err := h.encode(kind, version)
	if err != nil {
		h.log.Error("encode snapshot", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	h.Broadcast(payload)
}

func (h *Hub) encode(kind domain.EntityKind, version uint64) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Kind: kind, Version: version, Records: h.cache.List(kind)})
}

// Broadcast queues payload for every client. Clients whose buffer is full
// are dropped; they reconnect and receive a fresh state.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("websocket client too slow, dropping")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request and streams snapshots until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	// Registering and queueing the initial state under one lock keeps later
	// broadcasts behind it.
	h.mu.Lock()
	h.clients[c] = struct{}{}
	for _, kind := range domain.AllKinds() {
		payload, err := h.encode(kind, h.cache.Version(kind))
		if err != nil {
			h.log.Error("encode snapshot", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		c.send <- payload
	}
	h.mu.Unlock()
	h.log.Debug("websocket client registered", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readLoop discards client messages and keeps the read deadline alive.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.log.Debug("websocket client unregistered")
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
