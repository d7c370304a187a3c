// Package ws provides the WebSocket gateway: clients join a channel with a
// hello handshake, post messages, and receive every channel message as a
// fanned-out event.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Daethyra/Murphy/internal/bot"
	"github.com/Daethyra/Murphy/internal/config"
	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/hub"
	"github.com/Daethyra/Murphy/internal/protocol"
	"github.com/Daethyra/Murphy/internal/store"
	"github.com/Daethyra/Murphy/internal/transport"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	log      *store.ChannelLog
	bot      *bot.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, chanLog *store.ChannelLog, b *bot.Service) *Server {
	return &Server{
		cfg: cfg,
		hub: h,
		log: chanLog,
		bot: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for MVP
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeHello:
		s.handleHello(conn, data)
	case protocol.TypePost:
		s.handlePost(conn, data)
	default:
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleHello handles the hello handshake: it binds the connection to a
// channel and makes sure the channel exists in the log.
func (s *Server) handleHello(conn *hub.Connection, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	if msg.UserID == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "user_id is required")
		return
	}

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = "chan_" + uuid.New().String()[:8]
	}
	kind := channelKind(msg.ChannelKind)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.log.EnsureChannel(ctx, domain.Channel{ID: channelID, Kind: kind}); err != nil {
		log.Printf("ERROR: ensuring channel %s: %v", channelID, err)
		s.sendError(conn, protocol.ErrorCodeInternalError, "could not join channel")
		return
	}

	userName := msg.UserName
	if userName == "" {
		userName = msg.UserID
	}
	s.hub.Bind(conn, channelID, string(kind), msg.UserID, userName)

	ack := protocol.HelloAckMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			ChannelID: channelID,
		},
	}
	s.hub.SendJSON(conn, ack)

	log.Printf("Hello handshake completed: user=%s channel=%s (%s)", msg.UserID, channelID, kind)
}

// handlePost persists a posted message, fans it out to the channel, and
// hands it to the bot.
func (s *Server) handlePost(conn *hub.Connection, data []byte) {
	var msg protocol.PostMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid post message")
		return
	}

	if conn.ChannelID == "" {
		s.sendError(conn, protocol.ErrorCodeHelloRequired, "must send hello first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := domain.Message{
		MessageID:  s.nextMessageID(ctx, conn),
		ChannelID:  conn.ChannelID,
		AuthorID:   conn.UserID,
		AuthorName: conn.UserName,
		Content:    msg.Content,
		ReplyTo:    msg.ReplyTo,
		Timestamp:  time.Now(),
	}
	if msg.Attachment != nil {
		m.Attachment = &domain.Attachment{
			Filename: msg.Attachment.Filename,
			Content:  msg.Attachment.Content,
		}
	}

	if err := s.log.Append(ctx, m); err != nil {
		log.Printf("ERROR: persisting message %s: %v", m.MessageID, err)
		s.sendError(conn, protocol.ErrorCodeInternalError, "could not persist message")
		return
	}

	s.hub.BroadcastJSON(conn.ChannelID, messageEvent(m))

	s.bot.HandleInbound(m, domain.Channel{ID: conn.ChannelID, Kind: channelKind(conn.ChannelKind)})
}

// nextMessageID assigns the persisted ID for a post. A thread's starter
// message shares the thread's ID, so follow-up handling can fetch it by
// looking up the channel ID. Every later message gets a fresh ID.
func (s *Server) nextMessageID(ctx context.Context, conn *hub.Connection) string {
	if conn.ChannelKind == string(domain.ChannelThread) {
		res := s.log.FetchMessage(ctx, conn.ChannelID, conn.ChannelID)
		if res.Status == transport.LookupNotFound {
			return conn.ChannelID
		}
	}
	return "msg_" + uuid.New().String()[:8]
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			ChannelID: conn.ChannelID,
		},
		Code:    code,
		Message: message,
	}
	s.hub.SendJSON(conn, errMsg)
}

func messageEvent(m domain.Message) protocol.MessageEvent {
	return protocol.MessageEvent{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeMessage,
			Ts:        m.Timestamp.UnixMilli(),
			ChannelID: m.ChannelID,
		},
		MessageID:  m.MessageID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Content:    m.Content,
		ReplyTo:    m.ReplyTo,
	}
}

func channelKind(s string) domain.ChannelKind {
	switch s {
	case string(domain.ChannelThread):
		return domain.ChannelThread
	case string(domain.ChannelDM):
		return domain.ChannelDM
	default:
		return domain.ChannelText
	}
}
