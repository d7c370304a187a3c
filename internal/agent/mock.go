package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Daethyra/Murphy/internal/tools"
)

// searchTrigger is the prompt prefix that makes the mock exercise the
// retrieval tool, mimicking an agent deciding to search its history.
const searchTrigger = "!search "

// Mock is a scripted agent for tests and local development. It answers
// deterministically and routes !search prompts through the tool gate, so the
// whole retrieval path can run without a live model.
type Mock struct {
	gate *tools.Gate
}

// NewMock creates a mock agent. gate may be nil if tool use is not needed.
func NewMock(gate *tools.Gate) *Mock {
	return &Mock{gate: gate}
}

var _ Agent = (*Mock)(nil)

// Invoke returns a canned reply, or the retrieval tool's report when the
// prompt's last line starts with the search trigger.
func (m *Mock) Invoke(ctx context.Context, prompt, sessionKey string) (string, error) {
	if m.gate != nil {
		if q, ok := searchQuery(prompt); ok {
			args, err := json.Marshal(tools.SearchArgs{Query: q, SessionID: sessionKey})
			if err != nil {
				return "", fmt.Errorf("failed to marshal search args: %w", err)
			}
			out, err := m.gate.Execute(ctx, tools.HistorySearchTool, args)
			if err != nil {
				return fmt.Sprintf("I could not search the history: %v", err), nil
			}
			var res tools.SearchResult
			if err := json.Unmarshal(out, &res); err != nil {
				return "", fmt.Errorf("failed to decode search result: %w", err)
			}
			return res.Report, nil
		}
	}

	lines := len(strings.Split(prompt, "\n"))
	return fmt.Sprintf("Acknowledged. I read %d lines of context for session %s.", lines, sessionKey), nil
}

// searchQuery extracts the query from the last non-empty prompt line if it
// carries the search trigger.
func searchQuery(prompt string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if strings.HasPrefix(last, searchTrigger) {
		return strings.TrimSpace(strings.TrimPrefix(last, searchTrigger)), true
	}
	return "", false
}
