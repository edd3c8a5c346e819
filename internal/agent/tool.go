package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolSpec describes a callable capability offered to the model.
type ToolSpec struct {
	// Name uniquely identifies the tool within a registry.
	Name string `json:"name"`

	// Description tells the model what the tool does.
	Description string `json:"description"`

	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema json.RawMessage `json:"input_schema"`

	// Scopes lists the authorization scopes required to see and call the
	// tool. Empty means public.
	Scopes []string `json:"scopes,omitempty"`
}

// ToolResult is the outcome of one tool invocation. Content is always set and
// is used verbatim as the tool message fed back to the model.
type ToolResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Tool is a capability the model may invoke during a run.
//
// Run must return a failure result (not an error) for ordinary
// input-validation problems; errors and panics are reserved for genuinely
// exceptional conditions, which the executor isolates per call.
type Tool interface {
	Spec() ToolSpec
	Run(ctx context.Context, args map[string]any) (ToolResult, error)
}

// ToolSuccess builds a successful result whose content is the JSON rendering
// of data.
func ToolSuccess(name string, data any) ToolResult {
	return ToolResult{Name: name, OK: true, Content: encodeJSON(data), Data: data}
}

// ToolFailure builds a failed result. Content encodes {"error": <code>} so the
// model sees a structured failure it can react to.
func ToolFailure(name, code string) ToolResult {
	return ToolResult{Name: name, OK: false, Content: encodeJSON(map[string]string{"error": code}), Err: code}
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
