// Package transport defines the narrow surface the bot consumes from the chat
// platform: message lookup, history iteration, self identity and mention
// detection. Implementations live elsewhere (the sqlite channel log, test
// fakes); the core never depends on a concrete transport.
package transport

import (
	"context"

	"github.com/Daethyra/Murphy/internal/domain"
)

// LookupStatus tags the outcome of a single message lookup. Callers decide
// how to degrade; nothing here is raised past the component boundary.
type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNotFound
	LookupForbidden
	LookupError
)

// LookupResult is the tagged result of FetchMessage. Message is meaningful
// only when Status is LookupFound; Err only when Status is LookupError.
type LookupResult struct {
	Status  LookupStatus
	Message domain.Message
	Err     error
}

// Found wraps a successful lookup.
func Found(msg domain.Message) LookupResult {
	return LookupResult{Status: LookupFound, Message: msg}
}

// Failed wraps a transport failure.
func Failed(err error) LookupResult {
	return LookupResult{Status: LookupError, Err: err}
}

// Cursor iterates a channel's message log most-recent-first. Next returns
// ok=false when the log is exhausted; a non-nil error means the transport
// failed mid-iteration and no further messages will arrive.
type Cursor interface {
	Next(ctx context.Context) (msg domain.Message, ok bool, err error)
}

// Transport is the chat-platform collaborator.
type Transport interface {
	// FetchMessage resolves a single message by ID within a channel.
	FetchMessage(ctx context.Context, channelID, messageID string) LookupResult

	// History returns a cursor over at most limit messages, newest first.
	History(ctx context.Context, channelID string, limit int) Cursor

	// SelfID is the bot's own stable identity, used for role classification.
	SelfID() string

	// MentionsSelf reports whether the message mentions the bot.
	MentionsSelf(msg domain.Message) bool
}
