// Package events broadcasts invocation lifecycle events to WebSocket
// subscribers on the internal monitoring feed.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"goa.design/clue/log"

	"github.com/agentd-io/agentd/domain"
)

// Connection represents a single subscriber.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans invocation events out to all registered connections.
type Hub struct {
	ctx context.Context

	connections map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a hub. ctx carries the process logger and stops the hub
// loop when cancelled.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		ctx:         ctx,
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan []byte, 256),
	}
}

// Run starts the hub's main loop. It returns when the hub context is
// cancelled.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			log.Debug(h.ctx, log.KV{K: "msg", V: "event subscriber registered"}, log.KV{K: "conn_id", V: conn.ID})

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				close(conn.Send)
			}
			h.mu.Unlock()
			log.Debug(h.ctx, log.KV{K: "msg", V: "event subscriber unregistered"}, log.KV{K: "conn_id", V: conn.ID})

		case msg := <-h.broadcast:
			h.mu.RLock()
			for id, conn := range h.connections {
				select {
				case conn.Send <- msg:
				default:
					// Slow subscriber, drop it rather than block
					// the feed.
					log.Warn(h.ctx, log.KV{K: "msg", V: "event subscriber buffer full, closing"}, log.KV{K: "conn_id", V: id})
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection wraps a WebSocket connection for registration.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register adds a connection to the feed.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection from the feed.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// Publish broadcasts one run event to every subscriber. Publishing never
// blocks the invocation path; the event is dropped if the feed is full.
func (h *Hub) Publish(event *domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error(h.ctx, err, log.KV{K: "msg", V: "failed to marshal event"})
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// ConnectionCount returns the number of active subscribers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
