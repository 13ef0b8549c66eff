package observability

import (
	"bytes"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
)

// Latency buckets in seconds
var latencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
}

// Monitor holds the server collectors on its own registry so several
// engines (and tests) never collide on registration.
type Monitor struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	connections prometheus.Gauge
	accepted    prometheus.Counter
	parseErrors prometheus.Counter
	ioErrors    *prometheus.CounterVec
}

// NewMonitor creates a monitor with process and Go runtime collectors
func NewMonitor() *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trellis",
			Name:      "requests_total",
			Help:      "Requests served, by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trellis",
			Name:      "request_duration_seconds",
			Help:      "Time from parsed request to produced response.",
			Buckets:   latencyBuckets,
		}, []string{"method"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trellis",
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trellis",
			Name:      "connections_accepted_total",
			Help:      "Connections accepted by the listener.",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trellis",
			Name:      "parse_errors_total",
			Help:      "Requests rejected with 400 because they could not be parsed.",
		}),
		ioErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trellis",
			Name:      "connection_errors_total",
			Help:      "Per-connection I/O failures, by stage.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.connections,
		m.accepted,
		m.parseErrors,
		m.ioErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry for custom collectors
func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

// RecordRequest records one served request
func (m *Monitor) RecordRequest(method http.Method, status http.StatusCode, d time.Duration) {
	m.requests.WithLabelValues(method.String(), strconv.Itoa(status.Code())).Inc()
	m.latency.WithLabelValues(method.String()).Observe(d.Seconds())
}

// ConnectionOpened marks an accepted connection as in flight
func (m *Monitor) ConnectionOpened() {
	m.accepted.Inc()
	m.connections.Inc()
}

// ConnectionClosed marks a connection as finished
func (m *Monitor) ConnectionClosed() { m.connections.Dec() }

// ParseError counts a request rejected by the parser
func (m *Monitor) ParseError() { m.parseErrors.Inc() }

// IOError counts a connection failure at stage (tls, read, write)
func (m *Monitor) IOError(stage string) { m.ioErrors.WithLabelValues(stage).Inc() }

// Handler serves the registry in the Prometheus text format
func (m *Monitor) Handler() http.HandlerFunc {
	return func(*http.Request) *http.Response {
		families, err := m.registry.Gather()
		if err != nil {
			logger.Warn("metrics_gather_failed", zap.Error(err))
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				logger.Error("metrics_encode_failed", zap.Error(err))
				return http.InternalServerError()
			}
		}

		resp := http.Text(buf.String())
		resp.SetHeader(http.HeaderContentType, string(expfmt.FmtText))
		return resp
	}
}
