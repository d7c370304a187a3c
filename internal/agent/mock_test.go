package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/Daethyra/Murphy/internal/policy"
	"github.com/Daethyra/Murphy/internal/session"
	"github.com/Daethyra/Murphy/internal/tools"
)

func newMockWithHistory(t *testing.T) (*Mock, *session.Store) {
	t.Helper()
	sessions := session.NewStore(0)
	registry := tools.NewRegistry()
	registry.MustRegister(tools.HistorySearchTool, tools.NewHistorySearchExecutor(sessions))

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return NewMock(tools.NewGate(registry, engine)), sessions
}

func TestMockCannedReply(t *testing.T) {
	m, _ := newMockWithHistory(t)
	got, err := m.Invoke(context.Background(), "hello there", "s1")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got == "" {
		t.Fatal("expected a non-empty reply")
	}
}

func TestMockRunsSearchTool(t *testing.T) {
	m, sessions := newMockWithHistory(t)
	sessions.Append("s1",
		session.Record{Role: "human", Content: "the vault password rotation is friday"},
		session.Record{Role: "ai", Content: "noted"},
	)

	got, err := m.Invoke(context.Background(), "!search vault", "s1")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(got, "vault password rotation") {
		t.Fatalf("expected search report, got %q", got)
	}
}

func TestMockSearchEmptySession(t *testing.T) {
	m, _ := newMockWithHistory(t)
	got, err := m.Invoke(context.Background(), "!search anything", "s-empty")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(got, "No messages found") {
		t.Fatalf("expected zero-result report, got %q", got)
	}
}
