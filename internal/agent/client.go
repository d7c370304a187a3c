package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Daethyra/Murphy/internal/tools"
)

// InvokeRequest is the body POSTed to the remote agent's /invoke endpoint.
type InvokeRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

// SSEEvent is one parsed server-sent event from the agent stream.
type SSEEvent struct {
	Event string
	Data  string
}

// DeltaEventData is the payload of a delta event.
type DeltaEventData struct {
	Text string `json:"text"`
}

// DoneEventData is the payload of a done event.
type DoneEventData struct {
	FinalMessage string `json:"final_message,omitempty"`
}

// ErrorEventData is the payload of an error event.
type ErrorEventData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolRequestEventData is the payload of a tool_request event: the remote
// agent asking the gateway to run one of its tools mid-turn.
type ToolRequestEventData struct {
	ToolCallID string          `json:"tool_call_id"`
	ToolName   string          `json:"tool_name"`
	Args       json.RawMessage `json:"args"`
}

// ToolResultRequest is the body POSTed back to the agent with the outcome of
// a tool request.
type ToolResultRequest struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client invokes a remote agent runtime over HTTP with SSE streaming. Tool
// requests arriving on the stream are executed through the gate and their
// results POSTed back while the stream stays open.
type Client struct {
	endpoint   string
	httpClient *http.Client
	gate       *tools.Gate
}

// NewClient creates an agent client for the given endpoint. gate may be nil,
// in which case every tool request is answered with a failure result.
func NewClient(endpoint string, timeout time.Duration, gate *tools.Gate) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute // long timeout for streaming
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		gate:       gate,
	}
}

var _ Agent = (*Client)(nil)

// Invoke posts the prompt and accumulates the SSE stream into the final
// reply text. If the agent never sends a final_message, the concatenated
// deltas are returned instead.
func (c *Client) Invoke(ctx context.Context, prompt, sessionKey string) (string, error) {
	body, err := json.Marshal(InvokeRequest{SessionID: sessionKey, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.endpoint, "/") + "/invoke"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Session-ID", sessionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to invoke agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(b))
	}

	var deltas strings.Builder
	var final string
	err = parseSSE(resp.Body, func(event SSEEvent) error {
		switch event.Event {
		case "delta":
			var d DeltaEventData
			if err := json.Unmarshal([]byte(event.Data), &d); err != nil {
				return nil // malformed delta, skip it
			}
			deltas.WriteString(d.Text)
		case "done":
			var d DoneEventData
			if err := json.Unmarshal([]byte(event.Data), &d); err != nil {
				return nil
			}
			final = d.FinalMessage
		case "tool_request":
			var tr ToolRequestEventData
			if err := json.Unmarshal([]byte(event.Data), &tr); err != nil {
				log.Printf("WARN: malformed tool request from agent, ignoring: %v", err)
				return nil
			}
			if err := c.handleToolRequest(ctx, sessionKey, tr); err != nil {
				log.Printf("ERROR: submitting result for tool call %s: %v", tr.ToolCallID, err)
			}
		case "error":
			var e ErrorEventData
			if err := json.Unmarshal([]byte(event.Data), &e); err != nil {
				return fmt.Errorf("agent error (unparseable payload)")
			}
			return fmt.Errorf("agent error %s: %s", e.Code, e.Message)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if final != "" {
		return final, nil
	}
	return deltas.String(), nil
}

// handleToolRequest runs the requested tool through the gate and POSTs the
// outcome back to the agent. Tool failures (unknown tool, policy block,
// executor error) are reported to the agent as a failed result; only the
// submission round-trip itself can error.
func (c *Client) handleToolRequest(ctx context.Context, sessionKey string, tr ToolRequestEventData) error {
	var result ToolResultRequest
	if c.gate == nil {
		result = ToolResultRequest{OK: false, Error: "no tool executor available"}
	} else {
		out, err := c.gate.Execute(ctx, tr.ToolName, withSessionID(tr.Args, sessionKey))
		if err != nil {
			result = ToolResultRequest{OK: false, Error: err.Error()}
		} else {
			result = ToolResultRequest{OK: true, Result: out}
		}
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal tool result: %w", err)
	}

	url := fmt.Sprintf("%s/tool_calls/%s/result", strings.TrimSuffix(c.endpoint, "/"), tr.ToolCallID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Session-ID", sessionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to submit tool result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("agent rejected tool result with status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// withSessionID fills in the session_id argument when the agent omitted it,
// so session-scoped tools always operate on the invoking conversation.
func withSessionID(args json.RawMessage, sessionKey string) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil || m == nil {
		return args
	}
	if _, ok := m["session_id"]; ok {
		return args
	}
	m["session_id"] = sessionKey
	enriched, err := json.Marshal(m)
	if err != nil {
		return args
	}
	return enriched
}

// parseSSE reads an SSE stream and calls the handler for each event.
func parseSSE(reader io.Reader, handler func(SSEEvent) error) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var event SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event.
		if line == "" {
			if event.Event != "" || event.Data != "" {
				if err := handler(event); err != nil {
					return err
				}
				event = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if event.Data != "" {
				event.Data += "\n" + data
			} else {
				event.Data = data
			}
		}
		// Comments (lines starting with :) and other fields are ignored.
	}

	if event.Event != "" || event.Data != "" {
		if err := handler(event); err != nil {
			return err
		}
	}
	return scanner.Err()
}
