// Package hub provides connection management for WebSocket chat clients.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single WebSocket connection bound to a channel.
type Connection struct {
	ID          string
	ChannelID   string
	ChannelKind string
	UserID      string
	UserName    string
	Conn        *websocket.Conn
	Send        chan []byte
}

// Hub manages all WebSocket connections, indexed by channel.
type Hub struct {
	connections map[string]*Connection
	channels    map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *ChannelMessage

	mu sync.RWMutex
}

// ChannelMessage is a payload addressed to every member of a channel.
type ChannelMessage struct {
	ChannelID string
	Data      []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		channels:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *ChannelMessage, 256),
	}
}

// Run starts the hub's main loop. It runs for the process lifetime.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if conn.ChannelID != "" {
				if h.channels[conn.ChannelID] == nil {
					h.channels[conn.ChannelID] = make(map[string]bool)
				}
				h.channels[conn.ChannelID][conn.ID] = true
			}
			h.mu.Unlock()
			log.Printf("Connection registered: %s (channel: %s)", conn.ID, conn.ChannelID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if conn.ChannelID != "" && h.channels[conn.ChannelID] != nil {
					delete(h.channels[conn.ChannelID], conn.ID)
					if len(h.channels[conn.ChannelID]) == 0 {
						delete(h.channels, conn.ChannelID)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			log.Printf("Connection unregistered: %s", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if connIDs, ok := h.channels[msg.ChannelID]; ok {
				for connID := range connIDs {
					if conn, exists := h.connections[connID]; exists {
						select {
						case conn.Send <- msg.Data:
						default:
							// Buffer full, close the connection
							log.Printf("Connection %s buffer full, closing", connID)
							go h.Unregister(conn)
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a new connection ready for registration.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register adds the connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes the connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Bind attaches the connection to a channel after a successful hello.
func (h *Hub) Bind(conn *Connection, channelID, channelKind, userID, userName string) {
	h.mu.Lock()
	conn.ChannelID = channelID
	conn.ChannelKind = channelKind
	conn.UserID = userID
	conn.UserName = userName
	if h.channels[channelID] == nil {
		h.channels[channelID] = make(map[string]bool)
	}
	h.channels[channelID][conn.ID] = true
	h.mu.Unlock()
}

// Broadcast queues a payload for every member of a channel.
func (h *Hub) Broadcast(channelID string, data []byte) {
	h.broadcast <- &ChannelMessage{ChannelID: channelID, Data: data}
}

// SetReadDeadline sets the read deadline on the underlying socket.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline on the underlying socket.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// WriteMessage writes a message directly to the underlying socket. Only the
// write pump may call this.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	return c.Conn.WriteMessage(messageType, data)
}

// SendJSON marshals v and queues it on the connection's send channel.
func (h *Hub) SendJSON(conn *Connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: marshaling outbound payload: %v", err)
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Printf("Connection %s buffer full, dropping payload", conn.ID)
	}
}

// BroadcastJSON marshals v and queues it for every member of a channel.
func (h *Hub) BroadcastJSON(channelID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: marshaling broadcast payload: %v", err)
		return
	}
	h.Broadcast(channelID, data)
}

// Close closes the underlying socket with a deadline for the close frame.
func (c *Connection) Close() {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.Conn.Close()
}
