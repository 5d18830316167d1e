package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message tells a device that server state changed and a pull is due.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity,omitempty"`
	Action string         `json:"action,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Hub tracks connected devices grouped by owning user. Sync data is private,
// so a message only ever reaches the owner's own devices.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // userID -> clients
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to its user's room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.clients[c.userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.clients[c.userID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if room, ok := h.clients[c.userID]; ok {
		if _, ok := room[c]; ok {
			delete(room, c)
			close(c.send)
		}
		if len(room) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// NotifyUser sends a message to every device the user has connected.
func (h *Hub) NotifyUser(userID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal notify", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of devices the user has connected.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
