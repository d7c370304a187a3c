// Package protocol defines the WebSocket message protocol between chat
// clients and the gateway.
package protocol

// Message types from client to gateway
const (
	TypeHello = "hello"
	TypePost  = "post"
)

// Message types from gateway to client
const (
	TypeHelloAck = "hello_ack"
	TypeMessage  = "message"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	ChannelID string `json:"channel_id,omitempty"`
}

// HelloMessage is sent by a client to identify itself and join a channel.
type HelloMessage struct {
	BaseMessage
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	ChannelKind string `json:"channel_kind,omitempty"` // text, thread, dm
}

// HelloAckMessage is sent by the gateway after a successful hello.
type HelloAckMessage struct {
	BaseMessage
}

// Attachment is an inline file upload. Content is base64 in the JSON wire
// form, decoded by encoding/json's []byte handling.
type Attachment struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// PostMessage is sent by a client to post into its channel.
type PostMessage struct {
	BaseMessage
	Content    string      `json:"content"`
	ReplyTo    string      `json:"reply_to,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// MessageEvent is fanned out by the gateway to every channel member.
type MessageEvent struct {
	BaseMessage
	MessageID  string `json:"message_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
	ReplyTo    string `json:"reply_to,omitempty"`
}

// ErrorMessage is sent by the gateway when a request fails.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeHelloRequired  = "hello_required"
	ErrorCodeInternalError  = "internal_error"
)
