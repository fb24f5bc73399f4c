package scraper

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the review harvester.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	PagesTotal         *prometheus.CounterVec
	ReviewsTotal       *prometheus.CounterVec
	DroppedSources     *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	ClassifierDuration prometheus.Histogram
	ClassifierErrors   prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_requests_total",
			Help: "Total page requests issued per source.",
		},
		[]string{"source"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviews_request_duration_seconds",
			Help:    "Page request latency per source.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_pages_total",
			Help: "Pages processed per source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	reviews := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_records_total",
			Help: "Review records extracted per source.",
		},
		[]string{"source"},
	)
	dropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_source_failures_total",
			Help: "Source branches that degraded to an empty result.",
		},
		[]string{"source"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_errors_total",
			Help: "Page failures by source and type.",
		},
		[]string{"source", "error_type"},
	)
	classifierDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reviews_classifier_duration_seconds",
			Help:    "Sentiment classifier latency per aggregation.",
			Buckets: prometheus.DefBuckets,
		},
	)
	classifierErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_classifier_errors_total",
			Help: "Aggregations answered without sentiments.",
		},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_http_requests_total",
			Help: "HTTP requests served by route, method, and status.",
		},
		[]string{"route", "method", "status"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviews_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	registry.MustRegister(requests, requestDuration, pages, reviews, dropped, errorsTotal,
		classifierDuration, classifierErrors, httpRequests, httpDuration)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		PagesTotal:         pages,
		ReviewsTotal:       reviews,
		DroppedSources:     dropped,
		ErrorsTotal:        errorsTotal,
		ClassifierDuration: classifierDuration,
		ClassifierErrors:   classifierErrors,
		HTTPRequests:       httpRequests,
		HTTPDuration:       httpDuration,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(source string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(source).Inc()
}

// ObserveDuration records a page request duration.
func (m *Metrics) ObserveDuration(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(source).Observe(d.Seconds())
}

// IncPage counts a processed page; outcome is ok or failed.
func (m *Metrics) IncPage(source, outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(source, outcome).Inc()
}

// AddReviews adds n extracted records for source.
func (m *Metrics) AddReviews(source string, n int) {
	if m == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(source).Add(float64(n))
}

// IncSourceFailure counts a source branch that degraded to empty.
func (m *Metrics) IncSourceFailure(source string) {
	if m == nil {
		return
	}
	m.DroppedSources.WithLabelValues(source).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(source, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(source, errorType).Inc()
}

// ObserveClassifier records the latency of one classifier call.
func (m *Metrics) ObserveClassifier(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ClassifierDuration.Observe(d.Seconds())
	if err != nil {
		m.ClassifierErrors.Inc()
	}
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
