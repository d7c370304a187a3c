package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/hub"
	"github.com/Daethyra/Murphy/internal/store"
)

// Publisher delivers the bot's outgoing messages: each chunk is persisted to
// the channel log like any other message and fanned out to the channel's
// connected clients.
type Publisher struct {
	hub *hub.Hub
	log *store.ChannelLog

	botUserID string
	botName   string
}

// NewPublisher builds a Publisher speaking as the given bot identity.
func NewPublisher(h *hub.Hub, chanLog *store.ChannelLog, botUserID, botName string) *Publisher {
	return &Publisher{
		hub:       h,
		log:       chanLog,
		botUserID: botUserID,
		botName:   botName,
	}
}

// Reply sends content as a reply to an existing message.
func (p *Publisher) Reply(ctx context.Context, ch domain.Channel, replyTo, content string) error {
	return p.publish(ctx, ch, replyTo, content)
}

// Send sends content as a plain channel message.
func (p *Publisher) Send(ctx context.Context, ch domain.Channel, content string) error {
	return p.publish(ctx, ch, "", content)
}

func (p *Publisher) publish(ctx context.Context, ch domain.Channel, replyTo, content string) error {
	m := domain.Message{
		MessageID:  "msg_" + uuid.New().String()[:8],
		ChannelID:  ch.ID,
		AuthorID:   p.botUserID,
		AuthorName: p.botName,
		Role:       domain.RoleAssistant,
		Content:    content,
		ReplyTo:    replyTo,
		Timestamp:  time.Now(),
	}
	if err := p.log.Append(ctx, m); err != nil {
		return fmt.Errorf("persisting outgoing message: %w", err)
	}
	p.hub.BroadcastJSON(ch.ID, messageEvent(m))
	return nil
}
