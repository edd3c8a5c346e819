package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the service, registered on the default registry at
// package initialization and exposed through the gateway's /metrics endpoint.
var (
	// LLMRequestDuration measures model request latency per transport.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_llm_request_duration_seconds",
			Help:    "Duration of model backend requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"transport"},
	)

	// LLMRequestCounter counts model requests by transport and outcome.
	LLMRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_llm_requests_total",
			Help: "Total number of model backend requests by transport and status",
		},
		[]string{"transport", "status"},
	)

	// ToolExecutionCounter counts tool invocations by name and outcome
	// (ok, error, denied).
	ToolExecutionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_tool_executions_total",
			Help: "Total number of tool executions by tool name and status",
		},
		[]string{"tool_name", "status"},
	)

	// ToolExecutionDuration measures tool execution time per tool.
	ToolExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_tool_execution_duration_seconds",
			Help:    "Duration of tool executions in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"tool_name"},
	)

	// AgentRunCounter counts completed agent runs by outcome
	// (ok, exhausted, fault).
	AgentRunCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_agent_runs_total",
			Help: "Total number of agent runs by outcome",
		},
		[]string{"status"},
	)

	// HTTPRequestDuration measures HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestCounter counts HTTP requests.
	HTTPRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
)
