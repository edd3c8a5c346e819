package transport

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/conductor/internal/agent"
)

// OpenAIConfig configures the OpenAI chat-completions transport.
type OpenAIConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint for proxies and compatible servers.
	BaseURL string
}

// OpenAI is the chat-completions transport, used as the fallback when the
// primary transport yields an empty result. The SDK response struct is
// returned as-is; the client normalizes it through the choices branch.
type OpenAI struct {
	client *openai.Client
}

var _ agent.Transport = (*OpenAI)(nil)

// NewOpenAI creates the chat-completions transport. An empty API key is
// allowed for delayed configuration; Complete fails until one is set.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIKey == "" {
		return &OpenAI{}
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg)}
}

// Name returns the transport name.
func (t *OpenAI) Name() string {
	return "openai"
}

// Complete sends one chat completion request and returns the SDK response.
func (t *OpenAI) Complete(ctx context.Context, req *agent.Request) (any, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	if t.client == nil {
		return nil, NewError("openai", req.Model, errors.New("api key not configured"))
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: float32(req.Temperature),
		Messages:    buildChatMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = buildChatTools(req.Tools)
		chatReq.ToolChoice = "auto"
	}

	resp, err := t.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, NewError("openai", req.Model, err)
	}
	return resp, nil
}

func buildChatMessages(messages []agent.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		switch msg.Role {
		case agent.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: tc.EncodedArguments(),
						},
					}
				}
			}
		case agent.RoleTool:
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		out = append(out, oaiMsg)
	}
	return out
}

func buildChatTools(specs []agent.ToolSpec) []openai.Tool {
	out := make([]openai.Tool, len(specs))
	for i, spec := range specs {
		var schema map[string]any
		if err := json.Unmarshal(spec.InputSchema, &schema); err != nil || schema == nil {
			schema = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  schema,
			},
		}
	}
	return out
}
