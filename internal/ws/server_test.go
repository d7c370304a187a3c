package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Daethyra/Murphy/internal/assemble"
	"github.com/Daethyra/Murphy/internal/bot"
	"github.com/Daethyra/Murphy/internal/config"
	"github.com/Daethyra/Murphy/internal/history"
	"github.com/Daethyra/Murphy/internal/hub"
	"github.com/Daethyra/Murphy/internal/protocol"
	"github.com/Daethyra/Murphy/internal/session"
	"github.com/Daethyra/Murphy/internal/store"
	"github.com/Daethyra/Murphy/internal/token"
	"github.com/Daethyra/Murphy/internal/transport"
)

type scriptedAgent struct{ reply string }

func (a *scriptedAgent) Invoke(ctx context.Context, prompt, sessionKey string) (string, error) {
	return a.reply, nil
}

// newTestGateway wires a full gateway over an in-memory channel log and
// returns the HTTP test server plus the log for direct assertions.
func newTestGateway(t *testing.T) (*httptest.Server, *store.ChannelLog) {
	t.Helper()

	chanLog, err := store.NewChannelLog("file:"+t.Name()+"?mode=memory&cache=shared", "murphy-bot", "Spider Murphy")
	if err != nil {
		t.Fatalf("opening channel log: %v", err)
	}
	t.Cleanup(func() { chanLog.Close() })

	h := hub.NewHub()
	go h.Run()

	loader := history.NewLoader(chanLog, token.Estimate)
	asm := assemble.NewAssembler(chanLog, loader, "Spider Murphy", 32000, 3000)
	sessions := session.NewStore(0)
	publisher := NewPublisher(h, chanLog, "murphy-bot", "Spider Murphy")
	botSvc := bot.NewService(chanLog, asm, sessions, &scriptedAgent{reply: "noted"}, publisher, 2000, 5*time.Second)
	t.Cleanup(botSvc.Stop)

	srv := NewServer(config.Load(), h, chanLog, botSvc)

	e := echo.New()
	e.GET("/ws", srv.HandleWebSocket)
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts, chanLog
}

func dialGateway(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing gateway: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("writing message: %v", err)
	}
}

// readEvent reads frames until one of the wanted type arrives.
func readEvent(t *testing.T, conn *websocket.Conn, wantType string) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading %s event: %v", wantType, err)
		}
		var base protocol.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		if base.Type == wantType {
			return data
		}
	}
}

func TestThreadStarterGetsThreadID(t *testing.T) {
	ts, chanLog := newTestGateway(t)
	conn := dialGateway(t, ts)

	sendJSON(t, conn, map[string]any{
		"type":         "hello",
		"user_id":      "u1",
		"user_name":    "alice",
		"channel_id":   "th_planning",
		"channel_kind": "thread",
	})
	readEvent(t, conn, protocol.TypeHelloAck)

	sendJSON(t, conn, map[string]any{"type": "post", "content": "kicking off the plan"})
	var first protocol.MessageEvent
	if err := json.Unmarshal(readEvent(t, conn, protocol.TypeMessage), &first); err != nil {
		t.Fatalf("decoding message event: %v", err)
	}
	if first.MessageID != "th_planning" {
		t.Fatalf("thread starter should carry the thread's ID, got %q", first.MessageID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res := chanLog.FetchMessage(ctx, "th_planning", "th_planning")
	if res.Status != transport.LookupFound {
		t.Fatalf("starter not fetchable by channel ID, status %v", res.Status)
	}
	if res.Message.Content != "kicking off the plan" {
		t.Fatalf("unexpected starter content %q", res.Message.Content)
	}

	// Later posts in the same thread get fresh IDs.
	sendJSON(t, conn, map[string]any{"type": "post", "content": "second thought"})
	var second protocol.MessageEvent
	if err := json.Unmarshal(readEvent(t, conn, protocol.TypeMessage), &second); err != nil {
		t.Fatalf("decoding message event: %v", err)
	}
	if !strings.HasPrefix(second.MessageID, "msg_") {
		t.Fatalf("follow-up post should get a generated ID, got %q", second.MessageID)
	}
}

func TestTextChannelPostsGetGeneratedIDs(t *testing.T) {
	ts, _ := newTestGateway(t)
	conn := dialGateway(t, ts)

	sendJSON(t, conn, map[string]any{
		"type":       "hello",
		"user_id":    "u1",
		"channel_id": "room",
	})
	readEvent(t, conn, protocol.TypeHelloAck)

	sendJSON(t, conn, map[string]any{"type": "post", "content": "hello room"})
	var ev protocol.MessageEvent
	if err := json.Unmarshal(readEvent(t, conn, protocol.TypeMessage), &ev); err != nil {
		t.Fatalf("decoding message event: %v", err)
	}
	if !strings.HasPrefix(ev.MessageID, "msg_") {
		t.Fatalf("text channel post should get a generated ID, got %q", ev.MessageID)
	}
}
