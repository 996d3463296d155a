package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watermark_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "status", "path"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watermark_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status", "path"},
	)

	// Processing Metrics
	CompositeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watermark_composite_duration_seconds",
			Help:    "Duration of watermarking a single photo.",
			Buckets: prometheus.DefBuckets,
		},
	)
	PhotosProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watermark_photos_processed_total",
			Help: "Total number of photos processed, by result.",
		},
		[]string{"result"}, // ok or error kind
	)

	// Job Metrics
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watermark_jobs_total",
			Help: "Total number of asynchronous jobs, by final status.",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with the default Prometheus registry.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(CompositeDuration)
		prometheus.MustRegister(PhotosProcessedTotal)
		prometheus.MustRegister(JobsTotal)
	})
}
