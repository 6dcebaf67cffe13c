// Package ws is a gorilla/websocket broadcast hub pushing the simulation's
// outbound snapshot to every connected client after each tick.
//
// Grounded on the pack's optimization-service/internal/websocket/hub.go
// (register/unregister/broadcast channels, Client.Send buffered channel,
// read/write pumps) — simplified to broadcast-only since every client
// receives the same global snapshot, not a per-user targeted message.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub maintains active WebSocket connections and broadcasts snapshots.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger
	mu         sync.RWMutex
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run services registration, unregistration, and broadcast events. It blocks
// and should be started in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{"total_clients": count}).Info("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{"total_clients": count}).Info("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWebSocket upgrades the HTTP connection and registers the client.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("failed to upgrade websocket connection")
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, 256), hub: h}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Broadcast marshals value and fans it out to every connected client.
func (h *Hub) Broadcast(value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal websocket message")
		return
	}
	h.broadcast <- data
}

// ConnectionCount reports the number of active clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Error("websocket read error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.WithError(err).Error("failed to write websocket message")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
