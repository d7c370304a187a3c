// Package history reconstructs a token-bounded transcript from a channel's
// message log when no prior session state exists.
package history

import (
	"context"
	"log"

	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/transport"
)

// Estimator approximates the token cost of a text span.
type Estimator func(text string) int

// Loader pulls a bounded window of prior messages, oldest-first.
type Loader struct {
	transport transport.Transport
	estimate  Estimator
	selfID    string
}

// NewLoader builds a Loader. The bot's identity is captured once here and
// used to classify roles for every loaded message.
func NewLoader(tr transport.Transport, estimate Estimator) *Loader {
	return &Loader{
		transport: tr,
		estimate:  estimate,
		selfID:    tr.SelfID(),
	}
}

// Load walks the channel's log from most recent to oldest, inspecting at
// most maxMessages messages, skipping empty content, and accumulating
// estimated token costs. It stops before adding a message that would push
// the running total over maxTokens; a single message that alone exceeds the
// budget is never included. The accumulated set is reversed so the returned
// transcript is chronological.
//
// Transport errors mid-iteration are logged and treated as "no further
// history": partial context is preferred over no response.
func (l *Loader) Load(ctx context.Context, channelID string, maxTokens, maxMessages int) domain.Transcript {
	var collected []domain.Message
	total := 0

	cur := l.transport.History(ctx, channelID, maxMessages)
	for {
		msg, ok, err := cur.Next(ctx)
		if err != nil {
			log.Printf("WARN: loading history for channel %s stopped early: %v", channelID, err)
			break
		}
		if !ok {
			break
		}
		if msg.Content == "" {
			continue
		}

		cost := l.estimate(msg.Content)
		if total+cost > maxTokens {
			break
		}

		if msg.AuthorID == l.selfID {
			msg.Role = domain.RoleAssistant
		} else {
			msg.Role = domain.RoleUser
		}
		collected = append(collected, msg)
		total += cost
	}

	// Restore chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}
