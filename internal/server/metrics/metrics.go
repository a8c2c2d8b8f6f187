// Package metrics exposes Prometheus counters for token issuance, refresh
// outcomes and transport traffic. A nil *Metrics is a valid no-op recorder.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Token kinds.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Refresh outcomes.
const (
	OutcomeRotated  = "rotated"
	OutcomeInvalid  = "invalid"
	OutcomeRaceLost = "race_lost"
	OutcomeError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	tokensIssued    *prometheus.CounterVec
	refreshOutcomes *prometheus.CounterVec
	logins          *prometheus.CounterVec

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	grpcRequestsTotal *prometheus.CounterVec
}

// New registers all collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tokensIssued: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demoauth_tokens_issued_total",
				Help: "Tokens issued, by kind (access, refresh)",
			},
			[]string{"kind"},
		),
		refreshOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demoauth_refresh_outcomes_total",
				Help: "Refresh attempts, by outcome",
			},
			[]string{"outcome"},
		),
		logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demoauth_logins_total",
				Help: "Login attempts, by result",
			},
			[]string{"result"},
		),
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demoauth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demoauth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "demoauth_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		grpcRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demoauth_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method", "code"},
		),
	}
}

// TokenIssued counts one issued token of kind.
func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// RefreshOutcome counts one refresh attempt.
func (m *Metrics) RefreshOutcome(outcome string) {
	if m == nil {
		return
	}
	m.refreshOutcomes.WithLabelValues(outcome).Inc()
}

// Login counts a login attempt as "success" or "failure".
func (m *Metrics) Login(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.logins.WithLabelValues(result).Inc()
}

// RPC counts one finished gRPC call with its status code name.
func (m *Metrics) RPC(method, code string) {
	if m == nil {
		return
	}
	m.grpcRequestsTotal.WithLabelValues(method, code).Inc()
}

// GinMiddleware records request count, latency and in-flight requests.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		m.httpRequestsInFlight.Dec()
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
