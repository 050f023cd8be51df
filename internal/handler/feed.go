package handler

import (
	"encoding/json"
	"net/http"

	"github.com/efreitasn/matchbook/internal/feed"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The feed is public market data; no origin restriction.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FeedHandler upgrades connections to the WebSocket market-data feed.
type FeedHandler struct {
	hub *feed.Hub
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(hub *feed.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// subscribeMessage is a client → server control message.
type subscribeMessage struct {
	Action      string   `json:"action"` // "subscribe" or "unsubscribe"
	Instruments []string `json:"instruments"`
}

// Serve handles GET /ws: upgrades the connection, registers the client,
// and reads subscription commands until the connection drops.
func (h *FeedHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := h.hub.Register(conn)
	defer h.hub.Unregister(client)

	go client.WritePump()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case "subscribe":
			client.Subscribe(msg.Instruments)
		case "unsubscribe":
			client.Unsubscribe(msg.Instruments)
		}
	}
}
