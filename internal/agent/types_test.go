package agent

import (
	"strings"
	"testing"
)

func TestEncodedArguments(t *testing.T) {
	tests := []struct {
		name string
		call ToolCall
		want string
	}{
		{
			name: "raw encoding preserved",
			call: ToolCall{Arguments: map[string]any{"query": "x"}, ArgumentsRaw: `{"query":   "x"}`},
			want: `{"query":   "x"}`,
		},
		{
			name: "no arguments",
			call: ToolCall{},
			want: "{}",
		},
		{
			name: "marshaled when no raw form",
			call: ToolCall{Arguments: map[string]any{"query": "hello"}},
			want: `{"query":"hello"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.call.EncodedArguments(); got != tt.want {
				t.Fatalf("EncodedArguments() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModelResponseEmpty(t *testing.T) {
	var nilResp *ModelResponse
	if !nilResp.Empty() {
		t.Fatal("nil response should be empty")
	}
	if !(&ModelResponse{}).Empty() {
		t.Fatal("zero response should be empty")
	}
	if (&ModelResponse{Text: "hi"}).Empty() {
		t.Fatal("response with text should not be empty")
	}
	if (&ModelResponse{ToolCalls: []ToolCall{{ID: "call_0"}}}).Empty() {
		t.Fatal("response with calls should not be empty")
	}
}

func TestToolSuccessEncodesData(t *testing.T) {
	res := ToolSuccess("retrieve", map[string]any{"matches": []string{"a"}})
	if !res.OK {
		t.Fatal("expected OK result")
	}
	if res.Name != "retrieve" {
		t.Fatalf("name = %q", res.Name)
	}
	if !strings.Contains(res.Content, `"matches"`) {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Err != "" {
		t.Fatalf("unexpected error code %q", res.Err)
	}
}

func TestToolFailureEncodesErrorCode(t *testing.T) {
	res := ToolFailure("retrieve", ReasonToolNotFound)
	if res.OK {
		t.Fatal("expected failed result")
	}
	if res.Content != `{"error":"tool_not_found"}` {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Err != ReasonToolNotFound {
		t.Fatalf("err = %q", res.Err)
	}
}
