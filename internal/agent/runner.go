package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxSteps is the model-request budget per run.
const DefaultMaxSteps = 6

// Completer produces one model turn for the running conversation. ChatClient
// is the production implementation; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*ModelResponse, error)
}

// RunnerConfig configures an AgentRunner.
type RunnerConfig struct {
	// MaxSteps caps model requests per run. Zero uses DefaultMaxSteps.
	MaxSteps int

	Logger *slog.Logger
}

// AgentRunner drives one conversation to completion: it alternates between
// requesting a model turn and executing the turn's tool calls until the model
// answers without calls or the step budget runs out. The runner owns the
// growing message slice for the duration of one Run and discards it after.
type AgentRunner struct {
	client   Completer
	registry *ToolRegistry
	executor *ToolExecutor
	maxSteps int
	logger   *slog.Logger
}

// NewAgentRunner wires a runner from its collaborators.
func NewAgentRunner(client Completer, registry *ToolRegistry, executor *ToolExecutor, cfg RunnerConfig) *AgentRunner {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentRunner{
		client:   client,
		registry: registry,
		executor: executor,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Run executes the agent loop for one user input. Transport faults and
// context cancellation propagate as errors; tool failures never do, they flow
// back to the model as failed tool results. A run that exhausts its step
// budget returns an empty output with Steps set to the budget, which is a
// normal outcome rather than an error.
func (r *AgentRunner) Run(ctx context.Context, userInput string, auth *ToolAuthContext, systemPrompt string) (*AgentResult, error) {
	messages := make([]Message, 0, r.maxSteps*2+2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userInput})

	callCount := 0
	for step := 0; step < r.maxSteps; step++ {
		response, err := r.client.Complete(ctx, messages, r.registry.ListSpecs(auth))
		if err != nil {
			return nil, fmt.Errorf("model request: %w", err)
		}

		if len(response.ToolCalls) == 0 {
			r.logger.Debug("agent.done", "steps", step+1, "tool_calls", callCount)
			return &AgentResult{
				Output:            strings.TrimSpace(response.Text),
				Steps:             step + 1,
				ToolCallsExecuted: callCount,
			}, nil
		}

		// The assistant turn goes into the conversation before its calls
		// execute; an empty text stays absent rather than becoming "".
		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   response.Text,
			ToolCalls: response.ToolCalls,
		})

		results, updated, err := r.executor.Execute(ctx, response.ToolCalls, auth, callCount)
		if err != nil {
			return nil, err
		}
		callCount = updated

		// One tool message per issued call, in call order, so every call id
		// receives exactly one response even when execution failed.
		for i, call := range response.ToolCalls {
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    results[i].Content,
				Name:       call.Name,
				ToolCallID: call.ID,
			})
		}
	}

	r.logger.Warn("agent.max_steps_reached", "max_steps", r.maxSteps, "tool_calls", callCount)
	return &AgentResult{Output: "", Steps: r.maxSteps, ToolCallsExecuted: callCount}, nil
}
