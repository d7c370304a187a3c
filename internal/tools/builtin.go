package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Builtin tool names.
const (
	ClockTool     = "time.now"
	CalculateTool = "math.calculate"
)

// ClockResult is the JSON result of the time.now tool.
type ClockResult struct {
	Now string `json:"now"`
}

// CalculateArgs are the JSON arguments of the math.calculate tool.
type CalculateArgs struct {
	Expression string `json:"expression"`
}

// CalculateResult is the JSON result of the math.calculate tool.
type CalculateResult struct {
	Report string `json:"report"`
}

// NewClockExecutor reports the current wall-clock time. now is injectable
// for tests; pass time.Now in production wiring.
func NewClockExecutor(now func() time.Time) ExecutorFunc {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(ClockResult{Now: now().Format("2006-01-02 03:04 PM")})
	}
}

// NewCalculateExecutor evaluates arithmetic expressions with + - * / ^ and
// functions like sqrt, sin, cos. Bad expressions degrade to an explanatory
// report, never an error, so a degenerate input cannot fail the agent turn.
func NewCalculateExecutor() ExecutorFunc {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in CalculateArgs
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid math.calculate args: %w", err)
		}
		report := Calculate(in.Expression)
		return json.Marshal(CalculateResult{Report: report})
	}
}

// Calculate evaluates the expression and renders the result as a sentence.
func Calculate(expression string) string {
	v, err := evalExpression(expression)
	if err != nil {
		return fmt.Sprintf("Error evaluating expression: %v", err)
	}
	return fmt.Sprintf("The result of %s is %s", expression, strconv.FormatFloat(v, 'g', -1, 64))
}

// RegisterBuiltins registers the clock and calculator tools.
func RegisterBuiltins(r *Registry) {
	r.MustRegister(ClockTool, NewClockExecutor(time.Now))
	r.MustRegister(CalculateTool, NewCalculateExecutor())
}
