package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/conductor/internal/observability"
)

// DefaultToolConcurrency bounds how many tool invocations of one batch run in
// parallel.
const DefaultToolConcurrency = 4

// ExecutorConfig configures a ToolExecutor.
type ExecutorConfig struct {
	// MaxConcurrency bounds parallel invocations within a batch. Zero uses
	// DefaultToolConcurrency.
	MaxConcurrency int

	Logger *slog.Logger

	// Tracer emits one span per tool invocation. Nil uses the globally
	// registered tracer provider.
	Tracer trace.Tracer
}

// ToolExecutor runs the tool calls of one round: it resolves each call
// against the registry, applies the policy, invokes allowed capabilities, and
// isolates their failures so a misbehaving tool can never abort the batch or
// the enclosing conversation.
type ToolExecutor struct {
	registry       *ToolRegistry
	policy         *ToolPolicy
	maxConcurrency int
	logger         *slog.Logger
	tracer         trace.Tracer
}

// NewToolExecutor builds an executor over the given registry and policy.
func NewToolExecutor(registry *ToolRegistry, policy *ToolPolicy, cfg ExecutorConfig) *ToolExecutor {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultToolConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("conductor/agent")
	}
	return &ToolExecutor{
		registry:       registry,
		policy:         policy,
		maxConcurrency: maxConcurrency,
		logger:         logger,
		tracer:         tracer,
	}
}

// Execute runs one batch of tool calls and returns one result per call, in
// call order, plus the updated call count. Every call consumes budget:
// unknown names and policy denials increment the count just like executed
// calls, so probing nonexistent tools is not free. The only error returned is
// context cancellation; every other failure becomes a per-call result.
func (e *ToolExecutor) Execute(ctx context.Context, calls []ToolCall, auth *ToolAuthContext, callCount int) ([]ToolResult, int, error) {
	results := make([]ToolResult, len(calls))
	count := callCount

	// Policy decisions run sequentially in call order so the budget check
	// always sees the count of every prior call in the batch.
	type job struct {
		idx  int
		call ToolCall
		tool Tool
	}
	jobs := make([]job, 0, len(calls))
	for i, call := range calls {
		tool, ok := e.registry.Get(call.Name)
		if !ok {
			count++
			results[i] = ToolFailure(call.Name, ReasonToolNotFound)
			e.logger.Debug("tool.not_found", "tool", call.Name, "call_id", call.ID)
			continue
		}
		decision := e.policy.Evaluate(tool.Spec(), auth, count)
		if !decision.Allow {
			count++
			results[i] = ToolFailure(call.Name, decision.Reason)
			e.logger.Debug("tool.denied", "tool", call.Name, "call_id", call.ID, "reason", decision.Reason)
			observability.ToolExecutionCounter.WithLabelValues(call.Name, "denied").Inc()
			continue
		}
		count++
		jobs = append(jobs, job{idx: i, call: call, tool: tool})
	}

	if len(jobs) > 0 {
		sem := make(chan struct{}, e.maxConcurrency)
		var wg sync.WaitGroup
		for _, j := range jobs {
			wg.Add(1)
			go func(j job) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[j.idx] = e.invoke(ctx, j.call, j.tool)
			}(j)
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return results, count, err
	}
	return results, count, nil
}

// invoke runs a single allowed call inside a traced span and captures every
// failure mode, panics included, as a tool_execution_failed result.
func (e *ToolExecutor) invoke(ctx context.Context, call ToolCall, tool Tool) (res ToolResult) {
	ctx, span := e.tracer.Start(ctx, "tool."+call.Name,
		trace.WithAttributes(attribute.String("tool.name", call.Name)))
	defer span.End()

	start := time.Now()
	e.logger.Debug("tool.execute_start", "tool", call.Name, "call_id", call.ID, "arguments", call.Arguments)
	defer func() {
		status := "ok"
		if !res.OK {
			status = "error"
		}
		observability.ToolExecutionCounter.WithLabelValues(call.Name, status).Inc()
		observability.ToolExecutionDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
		e.logger.Debug("tool.execute_end", "tool", call.Name, "call_id", call.ID, "ok", res.OK, "duration_ms", time.Since(start).Milliseconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "tool panicked")
			e.logger.Error("tool.execute_panic", "tool", call.Name, "call_id", call.ID, "panic", r)
			res = ToolFailure(call.Name, ReasonExecutionFailed)
		}
	}()

	out, err := tool.Run(ctx, call.Arguments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("tool.execute_failed", "tool", call.Name, "call_id", call.ID, "error", err)
		return ToolFailure(call.Name, ReasonExecutionFailed)
	}
	return out
}
