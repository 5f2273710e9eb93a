// Package metrics exposes Prometheus collectors for the HTTP server and the
// request signer.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"gallery/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gallery"

// Metrics provides a self-contained Prometheus registry, common HTTP metrics
// and presign counters.
type Metrics struct {
	reg      *prometheus.Registry
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	presigns *prometheus.CounterVec
}

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of inflight HTTP requests.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests processed, partitioned by status code and method.",
	}, []string{"code", "method"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of latencies for HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"code", "method"})
	presigns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "presigned_urls_total",
		Help:      "Total number of pre-signed URLs issued, partitioned by HTTP method and result.",
	}, []string{"method", "result"})

	reg.MustRegister(
		inflight,
		requests,
		latency,
		presigns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		reg:      reg,
		inflight: inflight,
		requests: requests,
		latency:  latency,
		presigns: presigns,
	}
}

// Handler returns an http.Handler that serves Prometheus metrics using the internal registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// statusRecorder captures the HTTP status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an http.Handler to collect basic HTTP metrics:
// - inflight gauge
// - requests_total counter (labels: method, code)
// - request_duration_seconds histogram (labels: method, code)
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.status)
		elapsed := time.Since(start).Seconds()

		m.requests.WithLabelValues(code, r.Method).Inc()
		m.latency.WithLabelValues(code, r.Method).Observe(elapsed)
	})
}

// ObservePresign records the outcome of one signing call.
func (m *Metrics) ObservePresign(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.presigns.WithLabelValues(method, result).Inc()
}

// InstrumentPresigner returns a Presigner that counts every URL issued by p.
func (m *Metrics) InstrumentPresigner(p storage.Presigner) storage.Presigner {
	return &instrumentedPresigner{next: p, m: m}
}

type instrumentedPresigner struct {
	next storage.Presigner
	m    *Metrics
}

func (p *instrumentedPresigner) PresignPut(ctx context.Context, req *storage.PutRequest) (string, error) {
	u, err := p.next.PresignPut(ctx, req)
	p.m.ObservePresign(http.MethodPut, err)
	return u, err
}

func (p *instrumentedPresigner) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := p.next.PresignGet(ctx, key, expires)
	p.m.ObservePresign(http.MethodGet, err)
	return u, err
}
