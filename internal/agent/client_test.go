package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Daethyra/Murphy/internal/tools"
)

func sseServer(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoke" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			fmt.Fprint(w, e)
		}
	}))
}

func TestInvokeAccumulatesDeltas(t *testing.T) {
	srv := sseServer(t, []string{
		"event: delta\ndata: {\"text\":\"Hello \"}\n\n",
		"event: delta\ndata: {\"text\":\"world\"}\n\n",
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	got, err := c.Invoke(context.Background(), "hi", "s1")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("expected accumulated deltas, got %q", got)
	}
}

func TestInvokePrefersFinalMessage(t *testing.T) {
	srv := sseServer(t, []string{
		"event: delta\ndata: {\"text\":\"partial\"}\n\n",
		"event: done\ndata: {\"final_message\":\"the full answer\"}\n\n",
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	got, err := c.Invoke(context.Background(), "hi", "s1")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "the full answer" {
		t.Fatalf("expected final message, got %q", got)
	}
}

func TestInvokeSurfacesAgentError(t *testing.T) {
	srv := sseServer(t, []string{
		"event: error\ndata: {\"code\":\"overloaded\",\"message\":\"try later\"}\n\n",
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Invoke(context.Background(), "hi", "s1")
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected agent error, got %v", err)
	}
}

func TestInvokeNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Invoke(context.Background(), "hi", "s1")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

// toolRoundTripServer streams a tool_request event, waits for the client to
// POST the result back, then finishes the conversation with a done event.
func toolRoundTripServer(t *testing.T, toolCallID string, results chan<- ToolResultRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	submitted := make(chan struct{})
	mux.HandleFunc("/invoke", func(w http.ResponseWriter, r *http.Request) {
		fl, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer is not a flusher")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: tool_request\ndata: {\"tool_call_id\":%q,\"tool_name\":\"time.now\",\"args\":{}}\n\n", toolCallID)
		fl.Flush()
		select {
		case <-submitted:
		case <-time.After(2 * time.Second):
			t.Error("tool result was never submitted")
			return
		}
		fmt.Fprint(w, "event: done\ndata: {\"final_message\":\"answered with tools\"}\n\n")
	})
	mux.HandleFunc("/tool_calls/"+toolCallID+"/result", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var res ToolResultRequest
		if err := json.Unmarshal(body, &res); err != nil {
			t.Errorf("malformed tool result body: %v", err)
		}
		results <- res
		close(submitted)
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func TestInvokeExecutesToolRequest(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister("time.now", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var m map[string]any
		if err := json.Unmarshal(args, &m); err != nil {
			t.Errorf("unmarshal args: %v", err)
		}
		if m["session_id"] != "s1" {
			t.Errorf("expected session_id to be filled in, got %v", m["session_id"])
		}
		return json.RawMessage(`{"now":"2024-07-04 03:30 PM"}`), nil
	})
	gate := tools.NewGate(registry, nil)

	results := make(chan ToolResultRequest, 1)
	srv := toolRoundTripServer(t, "tc_1", results)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, gate)
	got, err := c.Invoke(context.Background(), "what time is it", "s1")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "answered with tools" {
		t.Fatalf("expected final message after tool round trip, got %q", got)
	}

	res := <-results
	if !res.OK {
		t.Fatalf("expected successful tool result, got error %q", res.Error)
	}
	if !strings.Contains(string(res.Result), "03:30 PM") {
		t.Fatalf("unexpected tool result payload: %s", res.Result)
	}
}

func TestInvokeReportsFailedToolRequest(t *testing.T) {
	// Empty registry, so the requested tool is unknown.
	gate := tools.NewGate(tools.NewRegistry(), nil)

	results := make(chan ToolResultRequest, 1)
	srv := toolRoundTripServer(t, "tc_2", results)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, gate)
	if _, err := c.Invoke(context.Background(), "what time is it", "s1"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	res := <-results
	if res.OK {
		t.Fatal("expected failed tool result for unknown tool")
	}
	if !strings.Contains(res.Error, "no executor registered") {
		t.Fatalf("unexpected tool error: %q", res.Error)
	}
}

func TestInvokeReportsMissingGate(t *testing.T) {
	results := make(chan ToolResultRequest, 1)
	srv := toolRoundTripServer(t, "tc_3", results)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil)
	if _, err := c.Invoke(context.Background(), "what time is it", "s1"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	res := <-results
	if res.OK {
		t.Fatal("expected failed tool result when no gate is configured")
	}
	if !strings.Contains(res.Error, "no tool executor") {
		t.Fatalf("unexpected tool error: %q", res.Error)
	}
}
