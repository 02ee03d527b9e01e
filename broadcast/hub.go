package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kara-engine/kara/log"
)

const (
	writeWait    = 5 * time.Second
	clientBuffer = 64
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Hub relays messages to websocket observers. Clients too slow to keep up are dropped.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client

	// Greeting builds the first frames sent to a new client, e.g. the full current state.
	Greeting func() []Message
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver queues msg for every client.
func (h *Hub) Deliver(msg Message) {
	h.mu.RLock()
	var slow []string
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		log.Warnf("websocket client %s is too slow, dropping it", id)
		h.remove(id)
	}
}

// ServeHTTP upgrades the connection and streams messages until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %s", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, clientBuffer),
	}

	if h.Greeting != nil {
		for _, msg := range h.Greeting() {
			c.send <- msg
		}
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.Debugf("websocket client %s connected", c.id)

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards inbound frames and detects disconnection.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c.id)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Debugf("websocket client %s: %s", c.id, err)
			h.remove(c.id)
			return
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	log.Debugf("websocket client %s disconnected", id)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
