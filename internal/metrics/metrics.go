package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markdownshare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "markdownshare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "markdownshare_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Group store metrics
var (
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markdownshare_store_operations_total",
			Help: "Total number of group store operations",
		},
		[]string{"operation", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "markdownshare_store_operation_duration_seconds",
			Help:    "Group store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	StoreFilesAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markdownshare_store_files_added_total",
			Help: "Total number of files added to groups, by kind",
		},
		[]string{"kind"},
	)

	StoreOrphansProduced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "markdownshare_store_orphans_produced_total",
			Help: "Artifacts left on disk without a metadata record by failed batches",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markdownshare_thumbnail_generations_total",
			Help: "Total number of thumbnail generation attempts",
		},
		[]string{"policy", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "markdownshare_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"policy"},
	)
)

// InitializeMetrics pre-populates expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics() {
	storeOps := []string{
		"create", "add_files", "remove_file", "rename_file",
		"rename_group", "complete", "list_completed", "get", "delete",
	}
	for _, op := range storeOps {
		for _, status := range []string{"success", "error"} {
			StoreOperationsTotal.WithLabelValues(op, status)
		}
		StoreOperationDuration.WithLabelValues(op)
	}

	for _, kind := range []string{"markdown", "image", "unknown"} {
		StoreFilesAdded.WithLabelValues(kind)
	}

	for _, policy := range []string{"cover", "contain"} {
		for _, status := range []string{"success", "error"} {
			ThumbnailGenerationsTotal.WithLabelValues(policy, status)
		}
		ThumbnailGenerationDuration.WithLabelValues(policy)
	}
}
