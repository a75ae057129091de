package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface by recording Prometheus
// metrics.
type Prometheus struct {
	composeTotal    *prometheus.CounterVec
	composeSeconds  *prometheus.HistogramVec
	composeNodes    *prometheus.GaugeVec
	composeOmitted  *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	cacheWriteBytes *prometheus.CounterVec
	httpInFlight    prometheus.Gauge
	httpTotal       *prometheus.CounterVec
	httpSeconds     *prometheus.HistogramVec
}

// NewPrometheus creates the metrics and registers them with reg. It panics
// if a metric is already registered, like prometheus.MustRegister.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		composeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipescope_compose_total",
				Help: "Layout compositions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		composeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipescope_compose_duration_seconds",
				Help:    "Time spent composing a layout",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		composeNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipescope_compose_nodes",
				Help: "Nodes placed by the most recent composition",
			},
			[]string{"mode"},
		),
		composeOmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipescope_compose_omitted_nodes_total",
				Help: "Visible nodes the layout engine failed to place",
			},
			[]string{"mode"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipescope_cache_requests_total",
				Help: "Cache lookups and writes by key type and result",
			},
			[]string{"key_type", "result"},
		),
		cacheWriteBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipescope_cache_write_bytes_total",
				Help: "Bytes written to the cache",
			},
			[]string{"key_type"},
		),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipescope_http_in_flight_requests",
			Help: "HTTP requests currently being served",
		}),
		httpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipescope_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipescope_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(
		p.composeTotal, p.composeSeconds, p.composeNodes, p.composeOmitted,
		p.cacheTotal, p.cacheWriteBytes,
		p.httpInFlight, p.httpTotal, p.httpSeconds,
	)
	return p
}

func (p *Prometheus) OnComposeStart(context.Context, string, int) {}

func (p *Prometheus) OnComposeComplete(_ context.Context, mode string, placed, omitted int, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.composeTotal.WithLabelValues(mode, outcome).Inc()
	p.composeSeconds.WithLabelValues(mode).Observe(d.Seconds())
	if err == nil {
		p.composeNodes.WithLabelValues(mode).Set(float64(placed))
		p.composeOmitted.WithLabelValues(mode).Add(float64(omitted))
	}
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheTotal.WithLabelValues(keyType, "set").Inc()
	p.cacheWriteBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string) {
	p.httpInFlight.Inc()
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.httpInFlight.Dec()
	p.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ ComposeHooks = (*Prometheus)(nil)
	_ CacheHooks   = (*Prometheus)(nil)
	_ HTTPHooks    = (*Prometheus)(nil)
)
