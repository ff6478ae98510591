package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts completed turns per agent and terminal outcome
	// (response, handoff, error).
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentfusion_turns_total",
		Help: "Total agent turns by terminal outcome",
	}, []string{"agent", "outcome"})

	// TurnDuration observes end-to-end turn latency per agent.
	TurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentfusion_turn_duration_seconds",
		Help:    "Agent turn duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"agent"})

	// ToolCallsTotal counts tool executions per tool name and status.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentfusion_tool_calls_total",
		Help: "Total tool executions by status",
	}, []string{"tool", "status"})

	// ModelTokensTotal counts tokens reported by model providers.
	ModelTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentfusion_model_tokens_total",
		Help: "Total tokens reported by model providers",
	}, []string{"agent"})
)
