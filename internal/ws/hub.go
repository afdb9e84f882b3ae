package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Audio chunks arrive as
	// base64 inside JSON frames, so the limit is generous.
	maxMessageSize = 512 * 1024
)

// Client represents a single voice WebSocket connection.
type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	Send       chan []byte
	SessionUID string
	DeviceID   uint

	mu     sync.Mutex
	closed bool
}

// closeSend closes the outbound channel exactly once. Turn goroutines can
// outlive the connection and still try to queue messages; trySend refuses
// those instead of panicking on a closed channel.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// trySend queues a message without blocking. It reports false when the
// client is gone or its send buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Hub maintains active voice sessions and delivers messages to them.
type Hub struct {
	Sessions   map[string]map[*Client]bool // session UID -> set of clients
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *SessionMessage
	mu         sync.RWMutex
}

// SessionMessage carries a message destined for every client of a session.
type SessionMessage struct {
	SessionUID string
	Message    []byte
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Sessions:   make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *SessionMessage),
	}
}

// Run handles register, unregister, and broadcast events. It should be
// launched as a goroutine.
func (h *Hub) Run() {
	log := logger.Get()

	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Sessions[client.SessionUID] == nil {
				h.Sessions[client.SessionUID] = make(map[*Client]bool)
			}
			h.Sessions[client.SessionUID][client] = true
			h.mu.Unlock()

			log.Info("voice client connected",
				zap.String("session_id", client.SessionUID),
				zap.Uint("device_id", client.DeviceID),
			)

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.Sessions[client.SessionUID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					client.closeSend()
					if len(clients) == 0 {
						delete(h.Sessions, client.SessionUID)
					}
				}
			}
			h.mu.Unlock()

			log.Info("voice client disconnected",
				zap.String("session_id", client.SessionUID),
				zap.Uint("device_id", client.DeviceID),
			)

		case msg := <-h.Broadcast:
			h.mu.RLock()
			clients := h.Sessions[msg.SessionUID]
			for client := range clients {
				if !client.trySend(msg.Message) {
					// Client's send buffer is full; disconnect it.
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.Sessions[msg.SessionUID], client)
					client.closeSend()
					if len(h.Sessions[msg.SessionUID]) == 0 {
						delete(h.Sessions, msg.SessionUID)
					}
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ReadPump reads messages from the WebSocket connection. It is intended to be
// run in a per-client goroutine. The provided handler is called for each
// incoming message.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				logger.Get().Warn("unexpected websocket close",
					zap.String("session_id", c.SessionUID),
					zap.Uint("device_id", c.DeviceID),
					zap.Error(err),
				)
			}
			break
		}
		handler(c, message)
	}
}

// WritePump sends messages from the Send channel to the WebSocket connection.
// It also sends periodic pings to keep the connection alive. It is intended to
// be run in a per-client goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
