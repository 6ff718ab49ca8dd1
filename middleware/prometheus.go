package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so that several engines (tests) can be
// built in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     prometheus.Gauge
	responseSize *prometheus.HistogramVec

	traversals prometheus.Counter
	sessions   prometheus.Gauge
}

func NewMetrics(label string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: label + `_requests`,
			Help: `A counter of total requests`,
		}, []string{`code`, `method`, `route`}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    label + `_duration`,
			Help:    `A histogram of request duration`,
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10},
		}, []string{`code`, `method`, `route`}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: label + `_in_flight`,
			Help: `A gauge of requests currently in flight`,
		}),
		responseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    label + `_response_size`,
			Help:    `A histogram of response size`,
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{`route`}),
		traversals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: label + `_traversal_rejections`,
			Help: `A counter of requests rejected for escaping the root`,
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: label + `_ws_sessions`,
			Help: `A gauge of open websocket sessions`,
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.inFlight,
		m.responseSize,
		m.traversals,
		m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Prometheus instruments every request routed through the engine.
func (m *Metrics) Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(code, c.Request.Method, route).Inc()
		m.duration.WithLabelValues(code, c.Request.Method, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.WithLabelValues(route).Observe(float64(size))
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The methods below accept a nil receiver so callers need not check
// whether metrics are enabled.

func (m *Metrics) TraversalRejected() {
	if m != nil {
		m.traversals.Inc()
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}
