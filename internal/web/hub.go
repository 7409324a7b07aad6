package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	// The feed is read-only and carries no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is one frame of the verdict feed
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Hub fans verdict events out to every connected websocket client.
// Slow clients are dropped rather than blocking /analyze.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	log        *logrus.Entry
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub; call Run to start delivering
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log.WithField("component", "feed"),
	}
}

// Run delivers messages until ctx is done, then disconnects all clients
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.WithField("clients", h.ClientCount()).Debug("feed client connected")

		case c := <-h.unregister:
			h.drop(c)
			h.log.WithField("clients", h.ClientCount()).Debug("feed client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.drop(c)
			}

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client without blocking
func (h *Hub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.log.WithError(err).Error("failed to marshal feed message")
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("feed broadcast channel full, skipping message")
	}
}

// ServeWS upgrades the request and registers the connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for the client going away
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
