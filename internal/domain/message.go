// Package domain defines the core types shared across the bot: messages,
// transcripts and channel handles.
package domain

import "time"

// Role identifies the speaker of a message, assigned once at load time by
// comparing the author against the bot's own identity.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single chat message. Content is never empty for messages that
// reach a Transcript; empty messages are dropped during loading. A Message is
// immutable once created and lives only for the duration of a session.
type Message struct {
	MessageID  string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Role       Role
	Content    string
	Timestamp  time.Time

	// ReplyTo holds the ID of the message this one replies to, if any.
	ReplyTo string

	// Attachment is the optional file uploaded with the message.
	Attachment *Attachment
}

// Attachment is a file carried by a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Transcript is an ordered, oldest-first message sequence scoped to one
// conversation (channel, thread or direct-message session).
type Transcript []Message
