// Package assemble composes reply-chain, thread-starter, loaded history and
// attachment text into one outgoing prompt body.
package assemble

import (
	"context"
	"fmt"
	"log"

	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/history"
	"github.com/Daethyra/Murphy/internal/transport"
)

const (
	// replyQuoteLen bounds the quoted prefix of a replied-to message.
	replyQuoteLen = 175

	// attachmentName is the fixed filename convention for inline text uploads.
	attachmentName = "message.txt"
)

// Assembler builds the prompt handed to the agent collaborator.
type Assembler struct {
	transport transport.Transport
	loader    *history.Loader

	botName     string
	maxTokens   int
	maxMessages int
}

// NewAssembler builds an Assembler. botName labels the assistant's lines in
// the reconstructed history block.
func NewAssembler(tr transport.Transport, loader *history.Loader, botName string, maxTokens, maxMessages int) *Assembler {
	return &Assembler{
		transport:   tr,
		loader:      loader,
		botName:     botName,
		maxTokens:   maxTokens,
		maxMessages: maxMessages,
	}
}

// Assemble returns the prompt for an inbound message. Every context lookup
// degrades on failure: a missing reply target, an unreadable thread starter
// or a dead transport just means less context. The function always returns a
// string, at minimum the original message content.
func (a *Assembler) Assemble(ctx context.Context, msg domain.Message, ch domain.Channel, sessionExists bool) string {
	content := msg.Content

	// Reconstruct prior conversation when the agent has no session state yet.
	if !sessionExists {
		transcript := a.loader.Load(ctx, ch.ID, a.maxTokens, a.maxMessages)
		if len(transcript) > 0 {
			block := "Previous conversation:\n"
			for _, m := range transcript {
				speaker := m.AuthorName
				if m.Role == domain.RoleAssistant {
					speaker = a.botName
				}
				block += fmt.Sprintf("\n%s: %s\n", speaker, m.Content)
			}
			content = fmt.Sprintf("%s\n\nCurrent message: %s", block, content)
		}
	}

	// Inline text upload, appended after the current message.
	if msg.Attachment != nil && msg.Attachment.Filename == attachmentName {
		content = fmt.Sprintf("%s\n\nContent from attached file '%s':\n%s", content, attachmentName, string(msg.Attachment.Content))
	}

	// Quoted reply context.
	if msg.ReplyTo != "" {
		res := a.transport.FetchMessage(ctx, ch.ID, msg.ReplyTo)
		switch res.Status {
		case transport.LookupFound:
			content = fmt.Sprintf("Replying to: %s\n\nUser Message: %s", truncate(res.Message.Content, replyQuoteLen), content)
		case transport.LookupNotFound:
			log.Printf("WARN: referenced message not found: %s", msg.ReplyTo)
		case transport.LookupForbidden:
			log.Printf("WARN: no permission to read referenced message %s", msg.ReplyTo)
		case transport.LookupError:
			log.Printf("ERROR: fetching referenced message %s: %v", msg.ReplyTo, res.Err)
		}
	}

	// Thread-starter context when the starter mentions the bot. The starter
	// shares the thread's own ID.
	if ch.Kind == domain.ChannelThread {
		res := a.transport.FetchMessage(ctx, ch.ID, ch.ID)
		switch res.Status {
		case transport.LookupFound:
			if a.transport.MentionsSelf(res.Message) {
				content = fmt.Sprintf("Thread context: %s\n\n%s", res.Message.Content, content)
			}
		default:
			log.Printf("WARN: thread starter unavailable for %s, continuing without it", ch.ID)
		}
	}

	return content
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
