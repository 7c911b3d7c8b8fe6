// internal/utils/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordTrade counts one trade attempt. Cancelled contexts are labelled
// separately from plain failures.
func (c *Collector) RecordTrade(ctx context.Context, side string, duration time.Duration, err error) {
	counter, ok := load[*prometheus.CounterVec](c, TradeCounterType)
	if !ok {
		return
	}

	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		status = "cancelled"
	default:
		status = "failed"
	}
	counter.WithLabelValues(side, status).Inc()

	if hist, ok := load[*prometheus.HistogramVec](c, TradeDurationType); ok {
		hist.WithLabelValues(side).Observe(duration.Seconds())
	}
}

// RecordFee adds a collected fee. kind is "creation" or "trade".
func (c *Collector) RecordFee(kind string, amount float64) {
	if counter, ok := load[*prometheus.CounterVec](c, FeeCounterType); ok && amount > 0 {
		counter.WithLabelValues(kind).Add(amount)
	}
}

// RecordAssetCreated counts a new asset.
func (c *Collector) RecordAssetCreated() {
	if counter, ok := load[prometheus.Counter](c, AssetCounterType); ok {
		counter.Inc()
	}
}

// RecordGraduation counts a migration attempt.
func (c *Collector) RecordGraduation(success bool) {
	counter, ok := load[*prometheus.CounterVec](c, GraduationCounterType)
	if !ok {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	counter.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if counter, ok := load[*prometheus.CounterVec](c, HTTPRequestCounterType); ok {
		counter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if hist, ok := load[*prometheus.HistogramVec](c, HTTPRequestDurationType); ok {
		hist.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// UpdateWebsocketConnections sets the number of live event streams.
func (c *Collector) UpdateWebsocketConnections(active int) {
	if gauge, ok := load[prometheus.Gauge](c, WebsocketConnectionType); ok {
		gauge.Set(float64(active))
	}
}

// UpdatePoolLiquidity records the reserves an asset migrated with.
func (c *Collector) UpdatePoolLiquidity(assetID uint64, tokens, funds float64) {
	gauge, ok := load[*prometheus.GaugeVec](c, PoolLiquidityType)
	if !ok {
		return
	}
	id := strconv.FormatUint(assetID, 10)
	gauge.WithLabelValues(id, "token").Set(tokens)
	gauge.WithLabelValues(id, "funds").Set(funds)
}
