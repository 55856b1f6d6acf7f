package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Text Service Prometheus metrics.
var (
	TextRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "text_requests_total",
			Help:      "Total number of Text Service requests",
		},
		[]string{"provider", "op", "status"},
	)

	TextRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "text_request_duration_seconds",
			Help:      "Text Service request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"provider", "op"},
	)

	TextTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "text_tokens_total",
			Help:      "Total Text Service tokens consumed",
		},
		[]string{"provider", "op"},
	)

	KeyRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_rotations_total",
			Help:      "Credential rotations triggered by rate limiting",
		},
	)

	BudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "budget_tokens_remaining",
			Help:      "Remaining Text Service token budget",
		},
		[]string{"period"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Pipeline Prometheus metrics.
var (
	BranchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_branch_total",
			Help:      "Responses by terminal branch",
		},
		[]string{"branch"},
	)

	SlowPathTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_path_total",
			Help:      "Slow-path corrections by outcome",
		},
		[]string{"outcome"}, // "improved" / "kept_fast" / "unchanged" / "rejected"
	)

	VocabularyAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vocabulary_loaded_timestamp_seconds",
			Help:      "Unix time of the last vocabulary rebuild",
		},
	)

	VocabularySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vocabulary_tokens",
			Help:      "Number of tokens in the vocabulary cache",
		},
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers Text Service and pipeline metrics. Must be called from main.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			TextRequestsTotal,
			TextRequestDuration,
			TextTokensTotal,
			KeyRotationsTotal,
			BudgetTokensRemaining,
			EmbeddingCacheTotal,
			BranchTotal,
			SlowPathTotal,
			VocabularyAge,
			VocabularySize,
		)
	})
}
