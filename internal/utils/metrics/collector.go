// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "launchpad"

// MetricType names one metric family held by the collector.
type MetricType string

const (
	TradeCounterType        MetricType = "trade_counter"
	TradeDurationType       MetricType = "trade_duration"
	FeeCounterType          MetricType = "fee_counter"
	AssetCounterType        MetricType = "asset_counter"
	GraduationCounterType   MetricType = "graduation_counter"
	HTTPRequestCounterType  MetricType = "http_request_counter"
	HTTPRequestDurationType MetricType = "http_request_duration"
	WebsocketConnectionType MetricType = "websocket_connections"
	PoolLiquidityType       MetricType = "pool_liquidity"
)

// Collector owns a private registry so several instances can coexist in
// one process.
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry
}

// NewCollector creates a collector with every launchpad metric registered.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		TradeCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Total number of trades by side and outcome",
		}, []string{"side", "status"}),

		TradeDurationType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_duration_seconds",
			Help:      "Trade execution time including any migration",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"side"}),

		FeeCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_collected_total",
			Help:      "Protocol fees collected, in currency units",
		}, []string{"kind"}),

		AssetCounterType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_created_total",
			Help:      "Total number of assets created",
		}),

		GraduationCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graduations_total",
			Help:      "Migration attempts by outcome",
		}, []string{"status"}),

		HTTPRequestCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		HTTPRequestDurationType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}, []string{"method", "route"}),

		WebsocketConnectionType: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Number of active event stream connections",
		}),

		PoolLiquidityType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_liquidity",
			Help:      "Reserves deposited into the market at graduation",
		}, []string{"asset", "reserve"}),
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Reset clears all labelled series (useful in tests).
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		case prometheus.Gauge:
			m.Set(0)
		}
		return true
	})
}

func load[T any](c *Collector, t MetricType) (T, bool) {
	v, ok := c.metrics.Load(t)
	if !ok {
		var zero T
		return zero, false
	}
	m, ok := v.(T)
	return m, ok
}
