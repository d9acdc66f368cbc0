package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func withTestRegistry(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
}

func TestMetrics_Counters(t *testing.T) {
	withTestRegistry(t)
	m := New()

	m.ObserveAICall("openai", "ok", 1500)
	m.ObserveAICall("openai", "parse_error", 300)
	m.ObserveAICall("claude", "provider_error", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AICalls.WithLabelValues("openai", "ok")))
	assert.Equal(t, 1800.0, testutil.ToFloat64(m.AITokens.WithLabelValues("openai")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AITokens.WithLabelValues("claude")))

	m.AddFindings("ai-generated", 3)
	m.AddFindings("manual", 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FindingsCreated.WithLabelValues("ai-generated")))

	m.ObserveSync("full", "ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AgentSyncs.WithLabelValues("full", "ok")))

	m.ObserveConsolidation("heatmap", 0.02)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ConsolidationLatency))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAICall("openai", "ok", 10)
		m.AddFindings("manual", 1)
		m.ObserveSync("quick", "ok")
		m.ObserveConsolidation("detail", 1)
	})
}
