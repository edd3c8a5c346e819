// Package agent implements the tool-calling agent core: a canonical
// conversation model, a normalizer for heterogeneous backend response
// payloads, a policy-gated tool executor, and the step loop that drives a
// conversation until the model produces a final answer.
package agent

import (
	"encoding/json"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in the canonical conversation. An empty Content is
// treated as absent by the transports so an assistant turn that carried only
// tool calls never emits a spurious empty utterance.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`

	// ToolCallID links a tool-role message back to the ToolCall it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls holds the invocations requested by an assistant turn, in the
	// order the model issued them.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// ID is the backend-assigned call identifier, or a synthesized
	// "call_<index>" when the backend omitted one. Unique within a run.
	ID   string `json:"id"`
	Name string `json:"name"`

	// Arguments is the parsed argument mapping. It is always a valid map:
	// argument encodings that fail to parse yield an empty map, never an
	// error.
	Arguments map[string]any `json:"arguments"`

	// ArgumentsRaw preserves the original textual encoding when the backend
	// sent arguments as a string, so re-encoding the call does not drift from
	// what the model produced.
	ArgumentsRaw string `json:"-"`
}

// EncodedArguments returns the call arguments in their original textual
// encoding when one was captured, else a canonical JSON rendering.
func (c ToolCall) EncodedArguments() string {
	if c.ArgumentsRaw != "" {
		return c.ArgumentsRaw
	}
	if len(c.Arguments) == 0 {
		return "{}"
	}
	b, err := json.Marshal(c.Arguments)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ModelResponse is a backend response normalized for the agent loop.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall

	// Raw is the untouched backend payload, retained only for diagnostics.
	Raw any
}

// Empty reports whether the response carries neither text nor tool calls.
// Emptiness is what triggers the fallback transport.
func (r *ModelResponse) Empty() bool {
	return r == nil || (r.Text == "" && len(r.ToolCalls) == 0)
}

// AgentResult is the final outcome of one run.
type AgentResult struct {
	Output            string `json:"output"`
	Steps             int    `json:"steps"`
	ToolCallsExecuted int    `json:"tool_calls_executed"`
}
