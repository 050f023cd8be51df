package feed

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket feed subscriber.
type Client struct {
	ID   uint64
	Conn *websocket.Conn

	mu             sync.RWMutex
	instruments    map[string]bool
	allInstruments bool

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Dropped counts messages discarded because the send buffer was full.
	Dropped uint64
}

var clientIDCounter uint64

// NewClient creates a new client wrapping a WebSocket connection.
func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:          atomic.AddUint64(&clientIDCounter, 1),
		Conn:        conn,
		instruments: make(map[string]bool),
		sendCh:      make(chan []byte, bufferSize),
		done:        make(chan struct{}),
	}
}

// Subscribe adds instruments to the client's subscription. The wildcard
// "*" subscribes to every instrument.
func (c *Client) Subscribe(instruments []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sym := range instruments {
		if sym == "*" {
			c.allInstruments = true
			continue
		}
		c.instruments[sym] = true
	}
}

// Unsubscribe removes instruments from the client's subscription.
func (c *Client) Unsubscribe(instruments []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sym := range instruments {
		if sym == "*" {
			c.allInstruments = false
			continue
		}
		delete(c.instruments, sym)
	}
}

// IsSubscribed checks if the client is subscribed to an instrument.
func (c *Client) IsSubscribed(instrument string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.allInstruments {
		return true
	}
	return c.instruments[instrument]
}

// Send queues a message for delivery. Returns false if the buffer is
// full and the message was dropped; a slow consumer never blocks the
// publisher.
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	case <-c.done:
		return false
	default:
		atomic.AddUint64(&c.Dropped, 1)
		return false
	}
}

// WritePump drains the send channel to the connection. It returns when
// the client is closed or a write fails.
func (c *Client) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// Close shuts the client down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
