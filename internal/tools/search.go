package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/query"
	"github.com/Daethyra/Murphy/internal/session"
)

// HistorySearchTool is the registry name of the retrieval capability.
const HistorySearchTool = "history.search"

// contextSnippetLen bounds the prev/next context excerpts in the report.
const contextSnippetLen = 100

// Normalize converts any recognized message representation into the
// canonical Message. It accepts the canonical shape itself, the agent's
// native session records, and loose role/content maps. Unknown shapes and
// unknown role discriminators are rejected.
func Normalize(v any) (domain.Message, bool) {
	switch m := v.(type) {
	case domain.Message:
		return m, true
	case *domain.Message:
		if m == nil {
			return domain.Message{}, false
		}
		return *m, true
	case session.Record:
		role, ok := roleFromNative(m.Role)
		if !ok {
			return domain.Message{}, false
		}
		return domain.Message{Role: role, Content: m.Content, Timestamp: m.Timestamp}, true
	case map[string]string:
		role, ok := roleFromNative(m["role"])
		if !ok {
			return domain.Message{}, false
		}
		return domain.Message{Role: role, Content: m["content"]}, true
	case map[string]any:
		// The shape encoding/json produces for a loose record.
		roleStr, _ := m["role"].(string)
		role, ok := roleFromNative(roleStr)
		if !ok {
			return domain.Message{}, false
		}
		content, _ := m["content"].(string)
		return domain.Message{Role: role, Content: content}, true
	default:
		return domain.Message{}, false
	}
}

func roleFromNative(role string) (domain.Role, bool) {
	switch role {
	case "human", "user":
		return domain.RoleUser, true
	case "ai", "assistant":
		return domain.RoleAssistant, true
	case "system":
		return domain.RoleSystem, true
	default:
		return "", false
	}
}

// Search runs the retrieval mini-language against a raw transcript and
// returns a formatted human-readable report. Every failure mode degrades to
// an explanatory string; this function never returns an error because the
// tool must never crash the surrounding agent turn.
func Search(queryText string, raw []any) string {
	transcript := make([]domain.Message, 0, len(raw))
	for _, v := range raw {
		if msg, ok := Normalize(v); ok {
			transcript = append(transcript, msg)
		}
	}

	terms, filters := query.Parse(queryText)
	matches, err := query.Evaluate(transcript, terms, filters)
	if err != nil {
		return fmt.Sprintf("Error searching chat history: %v", err)
	}
	return formatReport(queryText, matches)
}

func formatReport(queryText string, matches []query.Match) string {
	if len(matches) == 0 {
		return fmt.Sprintf("No messages found matching your query: '%s'", queryText)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d messages matching your query:\n\n", len(matches))
	for i, m := range matches {
		ts := ""
		if !m.Message.Timestamp.IsZero() {
			ts = fmt.Sprintf(" [%s]", m.Message.Timestamp.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintf(&b, "%d. [%s]%s: %s\n\n", i+1, strings.ToUpper(string(m.Message.Role)), ts, m.Message.Content)

		withContext := false
		if m.Prev != nil {
			fmt.Fprintf(&b, "   Context (previous): [%s]: %s\n", strings.ToUpper(string(m.Prev.Role)), snippet(m.Prev.Content))
			withContext = true
		}
		if m.Next != nil {
			fmt.Fprintf(&b, "   Context (next): [%s]: %s\n", strings.ToUpper(string(m.Next.Role)), snippet(m.Next.Content))
			withContext = true
		}
		if withContext {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= contextSnippetLen {
		return content
	}
	return string(runes[:contextSnippetLen]) + "..."
}

// SearchArgs are the JSON arguments of the history.search tool.
type SearchArgs struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// SearchResult is the JSON result of the history.search tool.
type SearchResult struct {
	Report string `json:"report"`
}

// NewHistorySearchExecutor binds the retrieval tool to the session store: the
// transcript searched is the agent's own running message log for the session.
func NewHistorySearchExecutor(sessions *session.Store) ExecutorFunc {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in SearchArgs
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid history.search args: %w", err)
		}
		records := sessions.Messages(in.SessionID)
		raw := make([]any, 0, len(records))
		for _, r := range records {
			raw = append(raw, r)
		}
		report := Search(in.Query, raw)
		return json.Marshal(SearchResult{Report: report})
	}
}
