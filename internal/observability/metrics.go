package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Ingestion metrics
	IngestedTotal      *prometheus.CounterVec
	DuplicatesTotal    prometheus.Counter
	RejectionsTotal    prometheus.Counter
	IngestErrors       prometheus.Counter

	// Feed metrics
	FeedRequestsTotal    *prometheus.CounterVec
	FeedDownloadDuration prometheus.Histogram
	FeedVendorsProcessed prometheus.Counter
	FeedVendorErrors     prometheus.Counter

	// Task metrics
	TasksCreated    prometheus.Counter
	TaskTransitions *prometheus.CounterVec
	ClaimConflicts  prometheus.Counter

	// Rating metrics
	RatingsComputed prometheus.Counter
	RatingsRelevant prometheus.Counter

	// Identity metrics
	TokenVerifications *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			// Ingestion metrics
			IngestedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vulnradar_vulnerabilities_ingested_total",
					Help: "Total number of vulnerabilities ingested by TLP rating",
				},
				[]string{"tlp_rating"},
			),
			DuplicatesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_duplicates_detected_total",
				Help: "Total number of ingest candidates flagged as duplicates",
			}),
			RejectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_rejected_candidates_total",
				Help: "Total number of ingest candidates skipped as rejected CVEs",
			}),
			IngestErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_ingest_errors_total",
				Help: "Total number of ingestion failures",
			}),

			// Feed metrics
			FeedRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vulnradar_feed_requests_total",
					Help: "Total number of feed API requests by outcome",
				},
				[]string{"status"},
			),
			FeedDownloadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "vulnradar_feed_download_duration_seconds",
				Help:    "Duration of full feed download runs in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
			}),
			FeedVendorsProcessed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_feed_vendors_processed_total",
				Help: "Total number of vendors processed by feed downloads",
			}),
			FeedVendorErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_feed_vendor_errors_total",
				Help: "Total number of per-vendor feed download failures",
			}),

			// Task metrics
			TasksCreated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_tasks_created_total",
				Help: "Total number of tasks created",
			}),
			TaskTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vulnradar_task_transitions_total",
					Help: "Total number of task status transitions by target status",
				},
				[]string{"status"},
			),
			ClaimConflicts: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_claim_conflicts_total",
				Help: "Total number of task claims rejected because an active task existed",
			}),

			// Rating metrics
			RatingsComputed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_ratings_computed_total",
				Help: "Total number of vulnerability relevance ratings computed",
			}),
			RatingsRelevant: promauto.NewCounter(prometheus.CounterOpts{
				Name: "vulnradar_ratings_relevant_total",
				Help: "Total number of ratings that crossed the relevance threshold",
			}),

			// Identity metrics
			TokenVerifications: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vulnradar_token_verifications_total",
					Help: "Total number of token verifications by outcome",
				},
				[]string{"outcome"}, // verified, rejected, error
			),

			// HTTP metrics
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vulnradar_http_requests_total",
					Help: "Total number of HTTP requests by method, route and status code",
				},
				[]string{"method", "route", "code"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "vulnradar_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds by route",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route"},
			),
		}
	})
	return metricsInstance
}
