package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the payload and chart pipelines.
// All record methods are safe on a nil receiver.
type Metrics struct {
	// Inbound chart extraction
	ChartsExtracted prometheus.Counter
	ChartsDropped   *prometheus.CounterVec
	RenderCacheHits *prometheus.CounterVec

	// Outbound shaping
	PayloadTrims     *prometheus.CounterVec
	PromptFits       prometheus.Counter
	BudgetRejections prometheus.Counter
	ShapedTokens     prometheus.Histogram

	// Model client
	CompletionLatency prometheus.Histogram
	CompletionErrors  *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChartsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "llmboundary_charts_extracted_total",
			Help: "Total number of chart blocks normalized into chart specs",
		}),

		// Dropped blocks by reason (parse_error, empty_block, missing_type, schema_mismatch, ...)
		ChartsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmboundary_charts_dropped_total",
			Help: "Total number of chart blocks dropped by reason",
		}, []string{"reason"}),

		RenderCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmboundary_render_cache_lookups_total",
			Help: "Render cache lookups by tier and result",
		}, []string{"tier", "result"}), // tier: "memory" or "redis"

		PayloadTrims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmboundary_payload_trims_total",
			Help: "Total number of outbound request parts that had to be trimmed",
		}, []string{"part"}), // part: "data", "context"

		PromptFits: factory.NewCounter(prometheus.CounterOpts{
			Name: "llmboundary_prompt_truncations_total",
			Help: "Total number of prompts truncated to fit the prompt budget",
		}),

		BudgetRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "llmboundary_budget_rejections_total",
			Help: "Total number of requests rejected because they stayed over the total budget",
		}),

		ShapedTokens: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "llmboundary_shaped_request_tokens",
			Help:    "Estimated tokens of outbound requests after shaping",
			Buckets: []float64{500, 1000, 4000, 8000, 16000, 32000, 64000, 128000},
		}),

		CompletionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "llmboundary_completion_duration_seconds",
			Help:    "Model completion latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		CompletionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmboundary_completion_errors_total",
			Help: "Total number of model completion errors by type",
		}, []string{"error_type"}),
	}
}

// RecordExtraction records one extraction pass
func (m *Metrics) RecordExtraction(extracted int, dropReasons []string) {
	if m == nil {
		return
	}
	m.ChartsExtracted.Add(float64(extracted))
	for _, reason := range dropReasons {
		m.ChartsDropped.WithLabelValues(reason).Inc()
	}
}

// RecordCacheLookup records a render cache lookup
func (m *Metrics) RecordCacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RenderCacheHits.WithLabelValues(tier, result).Inc()
}

// RecordShape records the outcome of shaping one outbound request
func (m *Metrics) RecordShape(dataTrimmed, contextTrimmed, promptTrimmed bool, totalTokens int, rejected bool) {
	if m == nil {
		return
	}
	if dataTrimmed {
		m.PayloadTrims.WithLabelValues("data").Inc()
	}
	if contextTrimmed {
		m.PayloadTrims.WithLabelValues("context").Inc()
	}
	if promptTrimmed {
		m.PromptFits.Inc()
	}
	if rejected {
		m.BudgetRejections.Inc()
	}
	m.ShapedTokens.Observe(float64(totalTokens))
}

// RecordCompletion records a model call
func (m *Metrics) RecordCompletion(seconds float64, errorType string) {
	if m == nil {
		return
	}
	m.CompletionLatency.Observe(seconds)
	if errorType != "" {
		m.CompletionErrors.WithLabelValues(errorType).Inc()
	}
}
