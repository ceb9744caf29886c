package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	questionnaireSubmissionsTotal *prometheus.CounterVec
	contactSubmissionsTotal       *prometheus.CounterVec
	notificationsPublishedTotal   *prometheus.CounterVec
	streamClientsActive           prometheus.Gauge
	uploadsTotal                  *prometheus.CounterVec
	uploadSizeBytes               prometheus.Histogram
	dashboardCacheTotal           *prometheus.CounterVec
	rateLimitedTotal              *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "http_requests_total",
			Help:      "API requests served, split by public and admin surface.",
		}, []string{"surface", "method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vastu",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"surface", "method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "http_errors_total",
			Help:      "Error responses returned by the API.",
		}, []string{"surface", "method", "route", "status"})

		questionnaireSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "questionnaire_submissions_total",
			Help:      "Questionnaire submissions by outcome and grade.",
		}, []string{"status", "grade"})

		contactSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "contact_submissions_total",
			Help:      "Contact form submissions by outcome.",
		}, []string{"status"})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "notifications_published_total",
			Help:      "Admin notifications published by type.",
		}, []string{"type"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vastu",
			Name:      "notification_stream_clients_active",
			Help:      "Number of connected notification stream clients.",
		})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "uploads_total",
			Help:      "Photo uploads by outcome.",
		}, []string{"status"})

		uploadSizeBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vastu",
			Name:      "upload_size_bytes",
			Help:      "Size distribution of accepted uploads.",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10),
		})

		dashboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "dashboard_cache_total",
			Help:      "Dashboard cache lookups by result.",
		}, []string{"result"})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vastu",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-endpoint limiter.",
		}, []string{"scope"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			questionnaireSubmissionsTotal, contactSubmissionsTotal,
			notificationsPublishedTotal, streamClientsActive,
			uploadsTotal, uploadSizeBytes, dashboardCacheTotal,
			rateLimitedTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// QuestionnaireSubmissions counts questionnaire submissions by status and grade letter.
func QuestionnaireSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return questionnaireSubmissionsTotal
}

// ContactSubmissions counts contact submissions by status.
func ContactSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return contactSubmissionsTotal
}

// NotificationsPublished counts published admin notifications.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// StreamClients tracks connected notification stream clients.
func StreamClients() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}

// Uploads counts uploads by status.
func Uploads() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsTotal
}

// UploadSize observes accepted upload sizes.
func UploadSize() prometheus.Histogram {
	RegisterMetrics()
	return uploadSizeBytes
}

// DashboardCache counts dashboard cache hits and misses.
func DashboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheTotal
}

// RateLimited counts limiter rejections per scope.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}
