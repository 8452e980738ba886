package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Standard Prometheus collectors for the triage pipeline
var (
	// triage_messages_total (counter): total messages triaged
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_messages_total",
		Help: "Total number of messages submitted to the triage pipeline",
	})

	// triage_verdict_count{classification=...}
	VerdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_verdict_count",
		Help: "Number of verdicts produced, by classification",
	}, []string{"classification"})

	// triage_category_count{category=...}
	CategoryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_category_count",
		Help: "Number of suspicious verdicts, by taxonomy category",
	}, []string{"category"})

	// triage_translated_spans_total{result=translated|passthrough|english}
	TranslatedSpans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_translated_spans_total",
		Help: "Number of spans handled during normalization, by result",
	}, []string{"result"})

	// triage_processing_errors_total{kind=...}
	ProcessingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_processing_errors_total",
		Help: "Number of triage invocations that failed with a processing error",
	}, []string{"kind"})

	// triage_latency_seconds (histogram): invocation duration
	LatencyHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_latency_seconds",
		Help:    "End-to-end triage latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordVerdict increments the verdict counters for one result.
func RecordVerdict(classification, category string) {
	VerdictCount.WithLabelValues(classification).Inc()
	if category != "" && category != "None" {
		CategoryCount.WithLabelValues(category).Inc()
	}
}

// RecordSpan increments the span counter for one normalization result.
func RecordSpan(result string) {
	TranslatedSpans.WithLabelValues(result).Inc()
}

// RecordProcessingError increments the error counter.
func RecordProcessingError(kind string) {
	ProcessingErrors.WithLabelValues(kind).Inc()
}
