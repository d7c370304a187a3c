// Package bot wires the context pipeline together: it decides which inbound
// messages to answer, assembles the prompt, invokes the agent off the
// receipt path, and delivers the chunked reply.
package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Daethyra/Murphy/internal/agent"
	"github.com/Daethyra/Murphy/internal/assemble"
	"github.com/Daethyra/Murphy/internal/chunk"
	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/session"
	"github.com/Daethyra/Murphy/internal/transport"
)

// errorReply is sent when the agent call fails.
const errorReply = "Sorry, I encountered an error processing your request."

// Deliverer sends outgoing chunks back through the chat surface. The first
// chunk of a response goes out as a reply to the triggering message, the
// rest as plain follow-up sends.
type Deliverer interface {
	Reply(ctx context.Context, ch domain.Channel, replyTo, content string) error
	Send(ctx context.Context, ch domain.Channel, content string) error
}

// Service handles inbound messages. Each channel gets its own worker
// goroutine so messages within a conversation are processed sequentially
// while unrelated channels proceed concurrently.
type Service struct {
	transport transport.Transport
	assembler *assemble.Assembler
	sessions  *session.Store
	agent     agent.Agent
	deliver   Deliverer

	chunkLen     int
	agentTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	workers map[string]chan task
}

type task struct {
	msg domain.Message
	ch  domain.Channel
}

// NewService builds the bot service.
func NewService(tr transport.Transport, asm *assemble.Assembler, sessions *session.Store, ag agent.Agent, deliver Deliverer, chunkLen int, agentTimeout time.Duration) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		transport:    tr,
		assembler:    asm,
		sessions:     sessions,
		agent:        ag,
		deliver:      deliver,
		chunkLen:     chunkLen,
		agentTimeout: agentTimeout,
		ctx:          ctx,
		cancel:       cancel,
		workers:      make(map[string]chan task),
	}
}

// Stop abandons in-flight work. Nothing handled here is durable, so
// abandonment is always safe.
func (s *Service) Stop() {
	s.cancel()
	s.mu.Lock()
	s.stopped = true
	for _, q := range s.workers {
		close(q)
	}
	s.workers = make(map[string]chan task)
	s.mu.Unlock()
	s.wg.Wait()
}

// HandleInbound enqueues a message for its channel's worker. The bot's own
// messages and messages the bot should not answer are ignored.
func (s *Service) HandleInbound(msg domain.Message, ch domain.Channel) {
	if msg.AuthorID == s.transport.SelfID() {
		return
	}
	if !s.shouldProcess(msg, ch) {
		return
	}

	// The enqueue stays under the lock so Stop cannot close a worker
	// channel between the lookup and the send.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	q, ok := s.workers[ch.ID]
	if !ok {
		q = make(chan task, 16)
		s.workers[ch.ID] = q
		s.wg.Add(1)
		go s.runWorker(q)
	}

	select {
	case q <- task{msg: msg, ch: ch}:
	default:
		log.Printf("WARN: channel %s worker queue full, dropping message %s", ch.ID, msg.MessageID)
	}
}

// shouldProcess mirrors the bot's attention rules: direct messages always,
// mentions always, and threads whose starter mentioned the bot. An
// unreadable thread starter means no.
func (s *Service) shouldProcess(msg domain.Message, ch domain.Channel) bool {
	if ch.Kind == domain.ChannelDM {
		return true
	}
	if s.transport.MentionsSelf(msg) {
		return true
	}
	if ch.Kind == domain.ChannelThread {
		res := s.transport.FetchMessage(s.ctx, ch.ID, ch.ID)
		return res.Status == transport.LookupFound && s.transport.MentionsSelf(res.Message)
	}
	return false
}

func (s *Service) runWorker(q chan task) {
	defer s.wg.Done()
	for t := range q {
		if s.ctx.Err() != nil {
			return
		}
		s.process(t.msg, t.ch)
	}
}

func (s *Service) process(msg domain.Message, ch domain.Channel) {
	ctx := s.ctx
	if s.agentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.agentTimeout)
		defer cancel()
	}

	sessionExists := s.sessions.Exists(ch.ID)
	prompt := s.assembler.Assemble(ctx, msg, ch, sessionExists)

	// The composed prompt becomes the agent's view of the user turn.
	s.sessions.Append(ch.ID, session.Record{Role: "human", Content: prompt, Timestamp: msg.Timestamp})

	reply, err := s.agent.Invoke(ctx, prompt, ch.ID)
	if err != nil {
		log.Printf("ERROR: agent invocation for channel %s: %v", ch.ID, err)
		if derr := s.deliver.Reply(ctx, ch, msg.MessageID, errorReply); derr != nil {
			log.Printf("ERROR: delivering error reply: %v", derr)
		}
		return
	}
	s.sessions.Append(ch.ID, session.Record{Role: "ai", Content: reply, Timestamp: time.Now()})

	chunks := chunk.Split(reply, s.chunkLen)
	if err := s.deliver.Reply(ctx, ch, msg.MessageID, chunks[0]); err != nil {
		log.Printf("ERROR: delivering reply to %s: %v", msg.MessageID, err)
	}
	for _, c := range chunks[1:] {
		if err := s.deliver.Send(ctx, ch, c); err != nil {
			log.Printf("ERROR: delivering follow-up chunk: %v", err)
		}
	}
}
