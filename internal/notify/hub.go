package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub manages WebSocket connections and broadcasts relay events to
// every connected client.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Serialized events awaiting broadcast
	broadcast chan []byte

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Closed when Run exits, so client pumps never block on
	// Unregister during shutdown.
	done chan struct{}

	mutex  sync.RWMutex
	logger *slog.Logger

	connectedClients int
	eventsSent       int
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop. It returns nil when ctx is
// cancelled, after closing every client send channel.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.connectedClients = 0
			h.mutex.Unlock()
			close(h.done)
			h.logger.Info("stopping websocket hub", "reason", ctx.Err())
			return nil

		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("websocket client connected", "total_clients", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			h.logger.Info("websocket client disconnected", "total_clients", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.eventsSent++
			h.mutex.Unlock()
		}
	}
}

// Notify queues an event for broadcast. The send is non-blocking: if
// the broadcast queue is full the event is dropped, never the caller.
func (h *Hub) Notify(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal event", "type", ev.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "type", ev.Type)
	}
}

// Stats returns the number of connected clients and the number of
// events broadcast so far.
func (h *Hub) Stats() (clients, sent int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.eventsSent
}
