package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Post metrics
	PostsCreated  prometheus.Counter
	PostsRejected *prometheus.CounterVec // reason: "empty" or "quota"

	// Summary metrics
	SummariesGenerated prometheus.Counter
	SummaryCacheHits   *prometheus.CounterVec // source: "memory" or "storage"
	SummaryLatency     prometheus.Histogram
	SummaryErrors      prometheus.Counter
}

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	return &Metrics{
		PostsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whatido_posts_created_total",
			Help: "Total number of posts created",
		}),
		PostsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "whatido_posts_rejected_total",
			Help: "Total number of rejected post submissions by reason",
		}, []string{"reason"}),

		SummariesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whatido_summaries_generated_total",
			Help: "Total number of summaries generated via the LLM",
		}),
		SummaryCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "whatido_summary_cache_hits_total",
			Help: "Total number of summary requests served without the LLM",
		}, []string{"source"}),
		SummaryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "whatido_summary_generation_duration_seconds",
			Help:    "Summary generation latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60}, // LLM calls dominate
		}),
		SummaryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whatido_summary_errors_total",
			Help: "Total number of failed summary generations",
		}),
	}
}
