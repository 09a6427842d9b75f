package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the application instruments registered on one registry.
type Metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	taxCalculations *prometheus.CounterVec
	uploadedBytes   prometheus.Counter
	sweptBlobs      prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmanager_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taxmanager_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		taxCalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmanager_tax_calculations_total",
			Help: "Server-side tax calculations by taxpayer type.",
		}, []string{"type"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taxmanager_file_uploaded_bytes_total",
			Help: "Bytes accepted by the file upload endpoint.",
		}),
		sweptBlobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taxmanager_file_orphans_swept_total",
			Help: "Orphaned blobs removed by the storage sweeper.",
		}),
	}

	registry.MustRegister(m.httpRequests, m.httpDuration, m.taxCalculations, m.uploadedBytes, m.sweptBlobs)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TaxCalculated(taxpayerType string) {
	m.taxCalculations.WithLabelValues(taxpayerType).Inc()
}

func (m *Metrics) FileUploaded(size int64) {
	m.uploadedBytes.Add(float64(size))
}

func (m *Metrics) OrphansSwept(n int) {
	m.sweptBlobs.Add(float64(n))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Instrument wraps a route handler; route should be the registered pattern so
// that label cardinality stays bounded.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
	})
}
