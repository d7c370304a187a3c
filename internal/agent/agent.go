// Package agent defines the language-model collaborator and its
// implementations: an HTTP SSE client for a remote agent runtime and a
// scripted mock for tests and local development.
package agent

import "context"

// Agent turns an assembled prompt into a reply. The call is long-running;
// the bot dispatches it off the message-receipt path. Implementations own
// their turn-taking and tool use; the bot only sees the final text.
type Agent interface {
	Invoke(ctx context.Context, prompt, sessionKey string) (string, error)
}
