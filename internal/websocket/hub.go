package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mhutchens/chorebank/internal/chore"
)

// Message is a real-time sync notification sent to a family's clients.
type Message struct {
	Type         string `json:"type"`
	TemplateID   int64  `json:"template_id,omitempty"`
	AssignmentID int64  `json:"assignment_id,omitempty"`
	ChildID      int64  `json:"child_id,omitempty"`
	Title        string `json:"title,omitempty"`
	Amount       int    `json:"amount,omitempty"`
}

// FromEvent converts a lifecycle event into its wire form.
func FromEvent(ev chore.Event) Message {
	return Message{
		Type:         ev.Kind,
		TemplateID:   ev.TemplateID,
		AssignmentID: ev.AssignmentID,
		ChildID:      ev.ChildID,
		Title:        ev.Title,
		Amount:       ev.Amount,
	}
}

// Hub maintains the set of active WebSocket clients grouped by family and
// broadcasts messages to one family at a time.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client of the given family.
func (h *Hub) Broadcast(familyID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.familyID != familyID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop the message rather than block
		}
	}
}

// BroadcastEvents fans a batch of lifecycle events out to their families.
func (h *Hub) BroadcastEvents(events []chore.Event) {
	for _, ev := range events {
		h.Broadcast(ev.FamilyID, FromEvent(ev))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
