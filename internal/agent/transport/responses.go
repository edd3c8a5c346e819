// Package transport contains model backend call conventions for the agent.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/conductor/internal/agent"
)

// DefaultBaseURL is the endpoint used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ResponsesConfig configures the Responses transport.
type ResponsesConfig struct {
	BaseURL string
	APIKey  string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Responses calls a Responses-convention endpoint (POST {base}/responses).
// The conversation is encoded as a flat list of input items: role/content
// messages, function_call items for prior assistant tool calls, and
// function_call_output items for tool results. The decoded JSON body is
// returned untouched for the client to normalize.
type Responses struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

var _ agent.Transport = (*Responses)(nil)

// NewResponses creates the Responses transport.
func NewResponses(cfg ResponsesConfig) *Responses {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Responses{
		client:  client,
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}
}

// Name returns the transport name.
func (t *Responses) Name() string {
	return "responses"
}

// Complete sends one completion request and returns the decoded payload.
func (t *Responses) Complete(ctx context.Context, req *agent.Request) (any, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, NewError("responses", req.Model, errors.New("model is required"))
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload := responsesRequest{
		Model:       model,
		Temperature: req.Temperature,
		Input:       buildInputItems(req.Messages),
	}
	if len(req.Tools) > 0 {
		payload.Tools = buildToolDefs(req.Tools)
		payload.ToolChoice = "auto"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError("responses", model, fmt.Errorf("marshal request: %w", err))
	}

	url := t.baseURL + "/responses"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewError("responses", model, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, NewError("responses", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		if readErr != nil {
			return nil, NewError("responses", model, fmt.Errorf("responses status %d (read body failed: %w)", resp.StatusCode, readErr)).WithStatus(resp.StatusCode)
		}
		return nil, NewError("responses", model, fmt.Errorf("responses status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))).WithStatus(resp.StatusCode)
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, NewError("responses", model, fmt.Errorf("decode response: %w", err))
	}
	return decoded, nil
}

type responsesRequest struct {
	Model       string             `json:"model"`
	Input       []any              `json:"input"`
	Temperature float64            `json:"temperature"`
	Tools       []responsesToolDef `json:"tools,omitempty"`
	ToolChoice  string             `json:"tool_choice,omitempty"`
}

type responsesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesFunctionCall struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type responsesFunctionOutput struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type responsesToolDef struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

func buildInputItems(messages []agent.Message) []any {
	items := make([]any, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case agent.RoleAssistant:
			if msg.Content != "" {
				items = append(items, responsesMessage{Role: string(msg.Role), Content: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				items = append(items, responsesFunctionCall{
					Type:      "function_call",
					CallID:    tc.ID,
					Name:      tc.Name,
					Arguments: tc.EncodedArguments(),
				})
			}
		case agent.RoleTool:
			items = append(items, responsesFunctionOutput{
				Type:   "function_call_output",
				CallID: msg.ToolCallID,
				Output: msg.Content,
			})
		default:
			items = append(items, responsesMessage{Role: string(msg.Role), Content: msg.Content})
		}
	}
	return items
}

func buildToolDefs(specs []agent.ToolSpec) []responsesToolDef {
	defs := make([]responsesToolDef, len(specs))
	for i, spec := range specs {
		params := spec.InputSchema
		if len(params) == 0 {
			params = emptyObjectSchema
		}
		defs[i] = responsesToolDef{
			Type:        "function",
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  params,
		}
	}
	return defs
}
