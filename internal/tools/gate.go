package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Daethyra/Murphy/internal/policy"
)

// Gate runs tool executions through the policy engine before dispatching to
// the registry. A blocked tool returns an error; the agent surfaces it as an
// explanatory string, never a crash.
type Gate struct {
	registry *Registry
	engine   *policy.Engine
}

// NewGate wires a registry to a policy engine.
func NewGate(registry *Registry, engine *policy.Engine) *Gate {
	return &Gate{registry: registry, engine: engine}
}

// Execute evaluates the tool policy and, if allowed, runs the tool.
func (g *Gate) Execute(ctx context.Context, toolName string, args json.RawMessage) (json.RawMessage, error) {
	if g.engine != nil {
		var rawArgs interface{}
		_ = json.Unmarshal(args, &rawArgs)
		decision, err := g.engine.Evaluate(ctx, map[string]interface{}{
			"tool_name": toolName,
			"args":      rawArgs,
		})
		if err != nil {
			return nil, fmt.Errorf("tool policy evaluation failed: %w", err)
		}
		if decision != policy.DecisionAllow {
			return nil, fmt.Errorf("tool %s blocked by policy", toolName)
		}
	}
	return g.registry.Execute(ctx, toolName, args)
}
