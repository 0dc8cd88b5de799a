package middleware

import (
	"context"
	"time"

	"github.com/assettrack/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsConfig configures the HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	ServiceName   string
	Enabled       bool
}

// DefaultHTTPMetricsConfig enables metrics under the default service name.
func DefaultHTTPMetricsConfig() HTTPMetricsConfig {
	return HTTPMetricsConfig{
		ServiceName: "assettrack-backend",
		Enabled:     true,
	}
}

// httpMetrics bundles the instruments recorded per request.
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	m := &httpMetrics{}

	var err error
	if m.requestTotal, err = telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}"); err != nil {
		return nil, err
	}

	// Submission payloads sit in the low kilobytes; report exports can
	// run larger, hence the extra top bucket on the response side.
	sizeBuckets := []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}
	histograms := []struct {
		dst        **telemetry.Histogram
		name, desc string
		unit       string
		buckets    []float64
	}{
		{&m.requestDuration, "http_server_request_duration_seconds",
			"HTTP request latency distribution in seconds", "s", telemetry.HTTPDurationBuckets},
		{&m.requestSize, "http_server_request_size_bytes",
			"HTTP request body size distribution in bytes", "By", sizeBuckets},
		{&m.responseSize, "http_server_response_size_bytes",
			"HTTP response body size distribution in bytes", "By", append(sizeBuckets, 5000000)},
	}
	for _, h := range histograms {
		*h.dst, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name:        h.name,
			Description: h.desc,
			Unit:        h.unit,
			Boundaries:  h.buckets,
		})
		if err != nil {
			return nil, err
		}
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// HTTPMetrics records request count, latency, sizes and in-flight count
// for every route. Counters carry the tenant label so per-site
// submission volume is visible; histograms stay method+route only to
// keep cardinality down.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}

	metrics, err := newHTTPMetrics(cfg.MeterProvider.Meter("http.server"))
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}
	return recordRequests(metrics)
}

// HTTPMetricsWithMeter builds the same middleware from a raw meter,
// which lets tests use an in-memory reader.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}
	return recordRequests(metrics)
}

func recordRequests(metrics *httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := c.Request.ContentLength

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		observe(ctx, metrics, requestSample{
			method:       c.Request.Method,
			route:        routePattern(c),
			status:       c.Writer.Status(),
			tenantID:     metricTenantID(c),
			duration:     time.Since(start),
			requestSize:  requestSize,
			responseSize: c.Writer.Size(),
		})
	}
}

type requestSample struct {
	method       string
	route        string
	status       int
	tenantID     string
	duration     time.Duration
	requestSize  int64
	responseSize int
}

func observe(ctx context.Context, metrics *httpMetrics, s requestSample) {
	countAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(s.method),
		telemetry.AttrHTTPRoute.String(s.route),
		telemetry.AttrHTTPStatusCode.Int(s.status),
	}
	if s.tenantID != "" {
		countAttrs = append(countAttrs, telemetry.AttrTenantID.String(s.tenantID))
	}
	metrics.requestTotal.Inc(ctx, countAttrs...)

	baseAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(s.method),
		telemetry.AttrHTTPRoute.String(s.route),
	}
	metrics.requestDuration.RecordDuration(ctx, s.duration, baseAttrs...)
	if s.requestSize > 0 {
		metrics.requestSize.Record(ctx, float64(s.requestSize), baseAttrs...)
	}
	if s.responseSize > 0 {
		metrics.responseSize.Record(ctx, float64(s.responseSize), baseAttrs...)
	}
}

// routePattern labels metrics with the matched route, not the raw path,
// so asset IDs never explode the label space.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

func metricTenantID(c *gin.Context) string {
	if v, ok := c.Get(JWTTenantIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}
