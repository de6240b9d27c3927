// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "videosum"

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	uploadURLsIssued *prometheus.CounterVec
	messagesTotal    *prometheus.CounterVec
	bytesUploaded    prometheus.Counter
}

// New creates the collectors and registers them with reg. Collectors that are
// already registered (e.g. a second server in the same process) are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploadURLsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_urls_total",
			Help:      "Signed upload URLs requested, by outcome",
		}, []string{"status"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Processing requests published, by queue backend and outcome",
		}, []string{"backend", "status"}),
		bytesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes uploaded to the object store through the server",
		}),
	}

	if reg == nil {
		return m
	}
	m.requestsTotal = register(reg, m.requestsTotal)
	m.requestDuration = register(reg, m.requestDuration)
	m.uploadURLsIssued = register(reg, m.uploadURLsIssued)
	m.messagesTotal = register(reg, m.messagesTotal)
	m.bytesUploaded = register(reg, m.bytesUploaded)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) UploadURL(err error) {
	if m == nil {
		return
	}
	m.uploadURLsIssued.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) Published(backend string, err error) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(backend, outcome(err)).Inc()
}

func (m *Metrics) Uploaded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesUploaded.Add(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
