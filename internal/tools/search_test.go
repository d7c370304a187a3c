package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/session"
)

func TestNormalizeCanonicalMessage(t *testing.T) {
	in := domain.Message{Role: domain.RoleUser, Content: "hi"}
	out, ok := Normalize(in)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestNormalizeSessionRecord(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	out, ok := Normalize(session.Record{Role: "human", Content: "hi", Timestamp: ts})
	require.True(t, ok)
	assert.Equal(t, domain.RoleUser, out.Role)
	assert.Equal(t, "hi", out.Content)
	assert.Equal(t, ts, out.Timestamp)

	out, ok = Normalize(session.Record{Role: "ai", Content: "hello"})
	require.True(t, ok)
	assert.Equal(t, domain.RoleAssistant, out.Role)
}

func TestNormalizeRejectsUnknownShapes(t *testing.T) {
	_, ok := Normalize(42)
	assert.False(t, ok)

	_, ok = Normalize(session.Record{Role: "tool", Content: "x"})
	assert.False(t, ok)
}

func TestNormalizeRoleMap(t *testing.T) {
	out, ok := Normalize(map[string]string{"role": "assistant", "content": "sure"})
	require.True(t, ok)
	assert.Equal(t, domain.RoleAssistant, out.Role)
	assert.Equal(t, "sure", out.Content)
}

func TestNormalizeDecodedJSONRecord(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"role":"human","content":"from the wire"}`), &v))

	out, ok := Normalize(v)
	require.True(t, ok)
	assert.Equal(t, domain.RoleUser, out.Role)
	assert.Equal(t, "from the wire", out.Content)

	require.NoError(t, json.Unmarshal([]byte(`{"role":7,"content":"bad role"}`), &v))
	_, ok = Normalize(v)
	assert.False(t, ok)
}

func TestSearchNoMatchReportNamesQuery(t *testing.T) {
	report := Search("quantum flux", []any{
		session.Record{Role: "human", Content: "unrelated"},
	})
	assert.Contains(t, report, "quantum flux")
	assert.Contains(t, report, "No messages found")
}

func TestSearchEndToEndScenario(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	raw := []any{
		session.Record{Role: "human", Content: "I like cats", Timestamp: t1},
		session.Record{Role: "ai", Content: "Cats are great", Timestamp: t1.Add(time.Minute)},
		session.Record{Role: "human", Content: "I like dogs too", Timestamp: t1.Add(2 * time.Minute)},
	}

	report := Search("cats NOT dogs", raw)
	assert.Contains(t, report, "Found 1 messages")
	assert.Contains(t, report, "I like cats")
	assert.Contains(t, report, "Context (next): [ASSISTANT]: Cats are great")
	assert.NotContains(t, report, "Context (previous)")
}

func TestSearchDegenerateWildcardBecomesErrorString(t *testing.T) {
	report := Search("foo(*", []any{session.Record{Role: "human", Content: "anything"}})
	assert.Contains(t, report, "Error searching chat history")
}

func TestSearchSkipsUnrecognizedRecords(t *testing.T) {
	report := Search("cats", []any{
		session.Record{Role: "tool", Content: "cats from a tool"},
		session.Record{Role: "human", Content: "cats from a human"},
	})
	assert.Contains(t, report, "Found 1 messages")
}

func TestSearchContextSnippetTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "abcdefghij"
	}
	raw := []any{
		session.Record{Role: "human", Content: long},
		session.Record{Role: "ai", Content: "the target word"},
	}
	report := Search("target", raw)
	assert.Contains(t, report, "...")
	assert.NotContains(t, report, long)
}

func TestHistorySearchExecutor(t *testing.T) {
	sessions := session.NewStore(0)
	sessions.Append("chan-1",
		session.Record{Role: "human", Content: "deploy finished at noon"},
		session.Record{Role: "ai", Content: "acknowledged"},
	)

	exec := NewHistorySearchExecutor(sessions)
	args, _ := json.Marshal(SearchArgs{Query: "deploy", SessionID: "chan-1"})
	out, err := exec(context.Background(), args)
	require.NoError(t, err)

	var res SearchResult
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Contains(t, res.Report, "deploy finished at noon")
}

func TestHistorySearchExecutorBadArgs(t *testing.T) {
	exec := NewHistorySearchExecutor(session.NewStore(0))
	_, err := exec(context.Background(), json.RawMessage(`{`))
	require.Error(t, err)
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("echo", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return args, nil
	}))
	require.Error(t, r.Register("echo", nil))

	out, err := r.Execute(context.Background(), "echo", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))

	_, err = r.Execute(context.Background(), "missing", nil)
	require.Error(t, err)
}
