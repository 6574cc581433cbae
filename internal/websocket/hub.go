// Package websocket pushes ledger events (assignments, exports) to every
// connected scanner and board so they can refresh without polling.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/xelth-com/lotscan/internal/logger"
)

// Event types published by the services
const (
	EventPositionAssigned = "position.assigned"
	EventLotExported      = "lot.exported"
	EventScan             = "SCAN"
)

// Event is the envelope every pushed message uses
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"ts"`
}

var log = logger.GetLogger("app")

type rename struct {
	client *Client
	id     string
	msgID  string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients: device id (or a generated web_ id) -> client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	identify   chan rename
	broadcast  chan []byte
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		identify:   make(chan rename),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop; it returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.add(client)
			h.mu.Unlock()

		case r := <-h.identify:
			h.mu.Lock()
			if cur, ok := h.clients[r.client.ID]; ok && cur == r.client {
				delete(h.clients, r.client.ID)
			}
			r.client.ID = r.id
			h.add(r.client)
			if ack, err := json.Marshal(map[string]string{"type": "ACK", "msgId": r.msgID, "status": "connected"}); err == nil {
				select {
				case r.client.send <- ack:
				default:
				}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.ID]; ok && cur == client {
				delete(h.clients, client.ID)
				close(client.send)
				log.Debugf("Client disconnected: %s", client.ID)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer, drop it
					close(c.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// enqueue hands a request to Run, giving up once the hub has stopped
func enqueue[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}

// add registers client, replacing an older connection of the same device. Caller holds mu.
func (h *Hub) add(client *Client) {
	if old, ok := h.clients[client.ID]; ok && old != client {
		close(old.send)
	}
	h.clients[client.ID] = client
	log.Debugf("Client connected: %s", client.ID)
}

// Publish broadcasts an event to every client. It never blocks; when the
// broadcast queue is full the event is dropped.
func (h *Hub) Publish(eventType string, payload interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Payload: payload, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		log.Warnf("Error marshaling %s event: %v", eventType, err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Warnf("Broadcast queue full, dropping %s event", eventType)
	}
}

// SendToDevice sends a message to a specific device
func (h *Hub) SendToDevice(deviceID string, message interface{}) bool {
	h.mu.RLock()
	client, ok := h.clients[deviceID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	msg, err := json.Marshal(message)
	if err != nil {
		log.Warnf("Error marshaling message: %v", err)
		return false
	}
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// Count reports the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
