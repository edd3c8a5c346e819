package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/conductor/internal/observability"
)

// DefaultRequestTimeout bounds one model request unless configured otherwise.
const DefaultRequestTimeout = 30 * time.Second

// Request is the transport-agnostic completion request. Each transport
// re-encodes the conversation and tool specs into its own wire format.
type Request struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	Messages    []Message
	Tools       []ToolSpec
}

// Transport is one concrete backend call convention. Complete returns the
// backend's response payload in whatever shape that convention produces;
// normalizing the payload is the client's job. Errors are transport faults
// (network, rate limiting, timeouts) and are never swallowed.
type Transport interface {
	Name() string
	Complete(ctx context.Context, req *Request) (any, error)
}

// ClientConfig configures a ChatClient.
type ClientConfig struct {
	Model       string
	Temperature float64

	// Timeout is passed to the transport per request. Zero uses
	// DefaultRequestTimeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// ChatClient sends the canonical conversation to the primary transport and,
// when the normalized result is empty, retries exactly once against the
// fallback transport. Transport faults propagate; payload-shape ambiguity
// never does.
type ChatClient struct {
	primary     Transport
	fallback    Transport
	model       string
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// NewChatClient builds a client over the primary transport. fallback may be
// nil, in which case an empty primary result is returned as-is.
func NewChatClient(primary, fallback Transport, cfg ClientConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatClient{
		primary:     primary,
		fallback:    fallback,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Complete produces one model turn for the conversation. Tool specs, when
// present, are offered to the model with automatic tool selection.
func (c *ChatClient) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*ModelResponse, error) {
	req := &Request{
		Model:       c.model,
		Temperature: c.temperature,
		Timeout:     c.timeout,
		Messages:    messages,
		Tools:       tools,
	}

	resp, err := c.request(ctx, c.primary, req)
	if err != nil {
		return nil, err
	}
	if !resp.Empty() {
		return resp, nil
	}

	// The payload itself may be large or sensitive; log its shape only.
	c.logger.Warn("llm.response_empty",
		"transport", c.primary.Name(),
		"payload_shape", payloadShape(resp.Raw))
	if c.fallback == nil {
		return resp, nil
	}

	resp, err = c.request(ctx, c.fallback, req)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		c.logger.Warn("llm.fallback_response_empty",
			"transport", c.fallback.Name(),
			"payload_shape", payloadShape(resp.Raw))
	}
	return resp, nil
}

func (c *ChatClient) request(ctx context.Context, t Transport, req *Request) (*ModelResponse, error) {
	start := time.Now()
	payload, err := t.Complete(ctx, req)
	observability.LLMRequestDuration.WithLabelValues(t.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.LLMRequestCounter.WithLabelValues(t.Name(), "error").Inc()
		return nil, err
	}
	observability.LLMRequestCounter.WithLabelValues(t.Name(), "ok").Inc()

	text, calls := Normalize(payload)
	return &ModelResponse{Text: text, ToolCalls: calls, Raw: payload}, nil
}

// payloadShape renders a bounded structural summary of a payload so empty
// responses can be diagnosed without logging whole payloads.
func payloadShape(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return fmt.Sprintf("%T", payload)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 8 {
		keys = append(keys[:8], "...")
	}
	return "map[" + strings.Join(keys, ",") + "]"
}
