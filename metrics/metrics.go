// Package metrics registers the Prometheus collectors for the conversation
// core and serves them over the standard /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TurnsTotal counts handled turns by outcome (ok or the error kind).
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charla_turns_total",
		Help: "Turns handled, labelled by result.",
	}, []string{"result"})

	// TurnDuration observes end-to-end turn handling time.
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "charla_turn_duration_seconds",
		Help:    "End-to-end turn handling duration.",
		Buckets: prometheus.DefBuckets,
	})

	// RouterDecisions counts routing decisions by source and lane.
	RouterDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charla_router_decisions_total",
		Help: "Routing decisions, labelled by source (llm or rule) and lane.",
	}, []string{"source", "lane"})

	// AgentTurns counts agent invocations by lane, including baton hops.
	AgentTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charla_agent_turns_total",
		Help: "Agent invocations, labelled by lane.",
	}, []string{"lane"})

	// ToolCalls counts tool executions by tool name and outcome.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charla_tool_calls_total",
		Help: "Tool executions, labelled by tool and outcome.",
	}, []string{"tool", "outcome"})

	// LLMFallbacks counts router falls back to the rule table.
	LLMFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charla_llm_fallback_total",
		Help: "Times the router fell back from the LLM to the rule table.",
	})

	// MessagesSent counts outbound messages by type.
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charla_messages_sent_total",
		Help: "Outbound messages delivered, labelled by message type.",
	}, []string{"type"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
