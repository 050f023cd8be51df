// Package feed fans out trade and auction events to WebSocket
// subscribers. Delivery is best-effort: a client whose buffer is full
// misses messages rather than stalling the matching path.
package feed

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is a single feed message.
type Event struct {
	Type       string  `json:"type"` // "trade" or "auction"
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Quantity   int64   `json:"quantity"`
	BidOrderNo uint64  `json:"bid_order_no,omitempty"`
	AskOrderNo uint64  `json:"ask_order_no,omitempty"`
	ExecutedAt string  `json:"executed_at,omitempty"`
	Volume     int64   `json:"volume,omitempty"` // auction events only
}

// Hub handles client registration, subscriptions, and event fan-out.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uint64]*Client
	bufferSize int
	logger     *slog.Logger
}

// NewHub creates a feed hub whose clients buffer up to bufferSize
// messages each.
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint64]*Client),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Register adds a new client for the given connection.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := NewClient(conn, h.bufferSize)

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.logger.Debug("feed client connected", slog.Uint64("client_id", c.ID))
	return c
}

// Unregister removes and closes a client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	c.Close()
	h.logger.Debug("feed client disconnected", slog.Uint64("client_id", c.ID))
}

// Publish encodes an event once and sends it to every subscribed
// client.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("feed event marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.IsSubscribed(ev.Instrument) {
			continue
		}
		c.Send(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
