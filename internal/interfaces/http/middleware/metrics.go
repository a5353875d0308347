package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
)

// A manual sync holds the request open for the whole pass, hence the long tail
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, errCount := meter.Int64Counter("http_server_request_total",
		metric.WithDescription("HTTP requests by method, route and status"),
		metric.WithUnit("{request}"))
	duration, errDur := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...))
	inFlight, errActive := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"))
	if err := errors.Join(errCount, errDur, errActive); err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, inFlight: inFlight}, nil
}

// HTTPMetrics returns a middleware recording request count, latency and
// in-flight requests by method and route. A disabled provider yields a no-op.
func HTTPMetrics(mp *telemetry.MeterProvider, log *zap.Logger) gin.HandlerFunc {
	passthrough := func(c *gin.Context) { c.Next() }
	if mp == nil || !mp.IsEnabled() {
		return passthrough
	}
	m, err := newHTTPMetrics(mp.Meter("http.server"))
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passthrough
	}
	return m.observe
}

func (m *httpMetrics) observe(c *gin.Context) {
	ctx := c.Request.Context()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	labels := metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("route", route),
	)

	m.inFlight.Add(ctx, 1, labels)
	defer m.inFlight.Add(ctx, -1, labels)
	start := time.Now()
	c.Next()

	m.duration.Record(ctx, time.Since(start).Seconds(), labels)
	m.requests.Add(ctx, 1, labels,
		metric.WithAttributes(attribute.String("status_code", strconv.Itoa(c.Writer.Status()))))
}
