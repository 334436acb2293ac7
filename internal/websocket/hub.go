package websocket

import (
	"context"
	"sync"
	"time"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
)

const (
	MessageTypeReading = "reading"
	MessageTypeAlert   = "alert"

	broadcastBuffer = 256
)

// Hub fans live readings and alerts out to dashboard connections.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logger.Logger
	mu         sync.RWMutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan models.WSMessage, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down...")
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("WebSocket client connected. Total: %d", total)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.log.Warn("Dropping slow WebSocket client")
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. It never blocks the caller; a
// full queue drops the message.
func (h *Hub) Broadcast(msgType, deviceID string, data interface{}) {
	msg := models.WSMessage{
		Type:      msgType,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.log.Warn("WebSocket broadcast queue full, dropping %s message", msgType)
	}
}

func (h *Hub) BroadcastReading(reading models.Reading) {
	h.Broadcast(MessageTypeReading, reading.DeviceID, reading)
}

func (h *Hub) BroadcastAlert(event models.AlertEvent) {
	h.Broadcast(MessageTypeAlert, event.DeviceID, event)
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
