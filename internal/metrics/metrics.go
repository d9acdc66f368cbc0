package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics audit service collectors, registered on the default registerer.
type Metrics struct {
	AICalls              *prometheus.CounterVec
	AITokens             *prometheus.CounterVec
	FindingsCreated      *prometheus.CounterVec
	AgentSyncs           *prometheus.CounterVec
	ConsolidationLatency *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		AICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_ai_calls_total",
			Help: "AI provider calls by provider and outcome (ok, provider_error, parse_error).",
		}, []string{"provider", "outcome"}),
		AITokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_ai_tokens_total",
			Help: "Tokens billed by AI providers.",
		}, []string{"provider"}),
		FindingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_findings_created_total",
			Help: "Audit findings persisted, by source.",
		}, []string{"source"}),
		AgentSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_agent_syncs_total",
			Help: "Agent sync requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		ConsolidationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audit_consolidation_duration_seconds",
			Help:    "Time spent consolidating snapshots for a view (heatmap, detail).",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"view"}),
	}

	prometheus.MustRegister(m.AICalls, m.AITokens, m.FindingsCreated, m.AgentSyncs, m.ConsolidationLatency)
	return m
}

// Handler exposes the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// The helpers below accept a nil receiver so services can run without metrics.

func (m *Metrics) ObserveAICall(provider, outcome string, tokens int) {
	if m == nil {
		return
	}
	m.AICalls.WithLabelValues(provider, outcome).Inc()
	if tokens > 0 {
		m.AITokens.WithLabelValues(provider).Add(float64(tokens))
	}
}

func (m *Metrics) AddFindings(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FindingsCreated.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObserveSync(mode, outcome string) {
	if m == nil {
		return
	}
	m.AgentSyncs.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) ObserveConsolidation(view string, seconds float64) {
	if m == nil {
		return
	}
	m.ConsolidationLatency.WithLabelValues(view).Observe(seconds)
}
