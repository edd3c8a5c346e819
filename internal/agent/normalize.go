package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Normalize reduces an opaque backend payload to the text the model produced
// and the tool calls it requested. It never fails: payloads matching none of
// the known shapes yield empty text and no calls, which the client treats as
// the signal to try the fallback transport.
//
// Shapes are tried as an ordered cascade. The first branch that produces text
// wins for text, while tool calls accumulate across every branch reached:
//
//  1. an "output" item list (responses convention): message items carry
//     content chunks and may embed tool calls, tool_call items parse
//     directly, output_text/text items contribute their text, and anything
//     else is treated as a tool call when it exposes a name or non-null
//     arguments, otherwise coerced to text;
//  2. a flat "output_text" field;
//  3. a "text" field, itself possibly a nested structure;
//  4. a chat-completions "choices[0].message" with content and tool_calls.
func Normalize(payload any) (string, []ToolCall) {
	if payload == nil {
		return "", nil
	}

	var frags []string
	var rawCalls []any

	if items, ok := listField(payload, "output"); ok {
		for _, item := range items {
			switch stringField(item, "type") {
			case "message", "output_message":
				if chunks, ok := listField(item, "content"); ok {
					for _, chunk := range chunks {
						frags = append(frags, coerceChunk(chunk)...)
					}
				}
				if embedded, ok := listField(item, "tool_calls"); ok {
					rawCalls = append(rawCalls, embedded...)
				}
			case "tool_call":
				rawCalls = append(rawCalls, item)
			case "output_text", "text":
				if v, ok := fieldOf(item, "text"); ok {
					frags = append(frags, coerceText(v)...)
				}
			default:
				if looksLikeToolCall(item) {
					rawCalls = append(rawCalls, item)
					continue
				}
				for _, key := range []string{"text", "content"} {
					if v, ok := fieldOf(item, key); ok {
						if itemFrags := coerceText(v); len(itemFrags) > 0 {
							frags = append(frags, itemFrags...)
							break
						}
					}
				}
			}
		}
	}

	if len(frags) == 0 {
		if s := stringField(payload, "output_text"); s != "" {
			frags = append(frags, s)
		}
	}

	if len(frags) == 0 {
		if v, ok := fieldOf(payload, "text"); ok {
			frags = append(frags, coerceText(v)...)
		}
	}

	if len(frags) == 0 {
		if choices, ok := listField(payload, "choices"); ok && len(choices) > 0 {
			if msg, ok := fieldOf(choices[0], "message"); ok && !isNilValue(msg) {
				if v, ok := fieldOf(msg, "content"); ok {
					frags = append(frags, coerceText(v)...)
				}
				if embedded, ok := listField(msg, "tool_calls"); ok {
					rawCalls = append(rawCalls, embedded...)
				}
			}
		}
	}

	return strings.TrimSpace(strings.Join(frags, "")), parseToolCalls(rawCalls)
}

// coerceChunk extracts text from one content chunk. Chunks declaring an
// output_text/text type contribute their text field; anything else goes
// through generic coercion.
func coerceChunk(chunk any) []string {
	switch stringField(chunk, "type") {
	case "output_text", "text":
		if v, ok := fieldOf(chunk, "text"); ok {
			return coerceText(v)
		}
		return nil
	}
	return coerceText(chunk)
}

// looksLikeToolCall reports whether an untyped output item should be read as
// a tool call: it exposes a non-empty name or any non-null arguments value.
func looksLikeToolCall(item any) bool {
	if stringField(item, "name") != "" {
		return true
	}
	if v, ok := fieldOf(item, "arguments"); ok && !isNilValue(v) {
		return true
	}
	return false
}

func parseToolCalls(raw []any) []ToolCall {
	if len(raw) == 0 {
		return nil
	}
	calls := make([]ToolCall, 0, len(raw))
	for idx, rc := range raw {
		calls = append(calls, parseToolCall(rc, idx))
	}
	return calls
}

// parseToolCall reads one raw call in either wire convention: name and
// arguments nested under a "function" object (chat completions) or directly
// on the call (responses). The id prefers the provider-specific call_id over
// the generic id and falls back to the call's position across the whole
// response, keeping synthesized ids unique.
func parseToolCall(raw any, idx int) ToolCall {
	id := stringField(raw, "call_id")
	if id == "" {
		id = stringField(raw, "id")
	}
	if id == "" {
		id = fmt.Sprintf("call_%d", idx)
	}

	source := raw
	if fn, ok := fieldOf(raw, "function"); ok && !isNilValue(fn) {
		source = fn
	}

	call := ToolCall{ID: id, Name: stringField(source, "name"), Arguments: map[string]any{}}
	argsVal, _ := fieldOf(source, "arguments")
	switch args := argsVal.(type) {
	case string:
		call.ArgumentsRaw = args
		var parsed map[string]any
		if err := json.Unmarshal([]byte(args), &parsed); err == nil && parsed != nil {
			call.Arguments = parsed
		}
	case map[string]any:
		call.Arguments = args
	}
	return call
}

// isNilValue reports nil-ness through interface wrapping, so a typed nil
// pointer inside an interface still counts as nil.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
