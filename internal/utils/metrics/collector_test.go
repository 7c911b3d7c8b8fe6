package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterVec(t *testing.T, c *Collector, mt MetricType) *prometheus.CounterVec {
	t.Helper()
	v, ok := load[*prometheus.CounterVec](c, mt)
	require.True(t, ok)
	return v
}

func TestRecordTrade(t *testing.T) {
	c := NewCollector()
	trades := counterVec(t, c, TradeCounterType)

	c.RecordTrade(context.Background(), "buy", time.Millisecond, nil)
	c.RecordTrade(context.Background(), "buy", time.Millisecond, errors.New("insufficient payment"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.RecordTrade(ctx, "sell", time.Millisecond, ctx.Err())

	assert.Equal(t, 1.0, testutil.ToFloat64(trades.WithLabelValues("buy", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(trades.WithLabelValues("buy", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(trades.WithLabelValues("sell", "cancelled")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.RecordGraduation(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(counterVec(t, a, GraduationCounterType).WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(counterVec(t, b, GraduationCounterType).WithLabelValues("success")))
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.RecordFee("trade", 3)
	c.UpdateWebsocketConnections(4)
	c.Reset()

	fees := counterVec(t, c, FeeCounterType)
	assert.Equal(t, 0.0, testutil.ToFloat64(fees.WithLabelValues("trade")))
	gauge, ok := load[prometheus.Gauge](c, WebsocketConnectionType)
	require.True(t, ok)
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordAssetCreated()
	c.RecordHTTPRequest(http.MethodGet, "/assets", http.StatusOK, time.Millisecond)
	c.UpdatePoolLiquidity(1, 150_000, 90_000)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "launchpad_assets_created_total 1"))
	assert.True(t, strings.Contains(body, `launchpad_http_requests_total{method="GET",route="/assets",status="200"} 1`))
	assert.True(t, strings.Contains(body, `launchpad_pool_liquidity{asset="1",reserve="funds"} 90000`))
}
