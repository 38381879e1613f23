package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	agentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscout_agent_runs_total",
			Help: "Total number of agent runs by terminal outcome.",
		},
		[]string{"outcome"},
	)
	agentAttemptsPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlscout_agent_attempts_per_run",
			Help:    "Execution attempts consumed by one agent run.",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlscout_model_call_duration_seconds",
			Help:    "Language model call latency by phase.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"phase"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlscout_query_duration_seconds",
			Help:    "Read-only query execution latency.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 1, 5, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(agentRunsTotal, agentAttemptsPerRun, modelCallDurationSeconds, queryDurationSeconds)
}

func RecordAgentRun(outcome string, attempts int) {
	agentRunsTotal.WithLabelValues(outcome).Inc()
	agentAttemptsPerRun.Observe(float64(attempts))
}

func RecordModelCall(phase string, duration time.Duration) {
	modelCallDurationSeconds.WithLabelValues(phase).Observe(duration.Seconds())
}

func RecordQuery(duration time.Duration) {
	queryDurationSeconds.Observe(duration.Seconds())
}
