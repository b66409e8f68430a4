package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysisRequests counts inference calls by endpoint and outcome (ok, timeout, transport, unavailable).
	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_requests_total",
			Help: "Inference backend calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	AnalysisRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_retries_total",
			Help: "Retried inference attempts by endpoint",
		},
		[]string{"endpoint"},
	)

	AnalysisLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_request_duration_seconds",
			Help:    "Inference call latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// AnalysisCache counts cache lookups by result (hit, miss, error).
	AnalysisCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"result"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analysis_circuit_breaker_state",
			Help: "Circuit breaker state per inference endpoint",
		},
		[]string{"endpoint"},
	)

	PipelineOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_outcomes_total",
			Help: "Content submissions by terminal outcome",
		},
		[]string{"outcome"},
	)

	VotesCast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_cast_total",
			Help: "Votes cast by dimension",
		},
		[]string{"dimension"},
	)

	PopularityUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "popularity_updates_total",
			Help: "Popularity score recomputations",
		},
	)
)
