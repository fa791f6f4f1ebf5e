package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the review API
// and the material promotion pipeline.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	filesMigrated     prometheus.Counter
	bytesMigrated     prometheus.Counter
	migrationFailures prometheus.Counter
	acceptsTotal      prometheus.Counter
	rejectsTotal      prometheus.Counter
	cleanupRetries    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	filesMigrated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contribution_files_migrated_total",
		Help: "Files promoted from intake to materials",
	})

	bytesMigrated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contribution_bytes_migrated_total",
		Help: "Bytes promoted from intake to materials",
	})

	migrationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contribution_migration_failures_total",
		Help: "Migrations that ended with at least one failed file",
	})

	acceptsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contribution_accepts_total",
		Help: "Contribution requests accepted",
	})

	rejectsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contribution_rejects_total",
		Help: "Contribution requests rejected",
	})

	cleanupRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contribution_cleanup_retries_total",
		Help: "Deferred intake deletions retried after a reject",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, filesMigrated, bytesMigrated,
		migrationFailures, acceptsTotal, rejectsTotal, cleanupRetries, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		filesMigrated:     filesMigrated,
		bytesMigrated:     bytesMigrated,
		migrationFailures: migrationFailures,
		acceptsTotal:      acceptsTotal,
		rejectsTotal:      rejectsTotal,
		cleanupRetries:    cleanupRetries,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveMigratedFile records one confirmed file promotion.
func (s *MetricsService) ObserveMigratedFile(sizeBytes int64) {
	if s == nil {
		return
	}
	s.filesMigrated.Inc()
	if sizeBytes > 0 {
		s.bytesMigrated.Add(float64(sizeBytes))
	}
}

// IncMigrationFailure records a migration that did not fully complete.
func (s *MetricsService) IncMigrationFailure() {
	if s == nil {
		return
	}
	s.migrationFailures.Inc()
}

// IncAccepted records a committed accept transition.
func (s *MetricsService) IncAccepted() {
	if s == nil {
		return
	}
	s.acceptsTotal.Inc()
}

// IncRejected records a committed reject transition.
func (s *MetricsService) IncRejected() {
	if s == nil {
		return
	}
	s.rejectsTotal.Inc()
}

// IncCleanupRetry records a deferred intake deletion attempt.
func (s *MetricsService) IncCleanupRetry() {
	if s == nil {
		return
	}
	s.cleanupRetries.Inc()
}
