// Package middleware provides HTTP middleware for the asset tracking service.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxRequestIDLength caps the request ID taken from headers.
	MaxRequestIDLength = 128
	// MaxTenantIDLength caps the tenant ID taken from headers.
	MaxTenantIDLength = 64
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig traces under the service's default name.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "assettrack-backend",
		Enabled:     true,
	}
}

// Tracing applies DefaultTracingConfig.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and tags each span with the request,
// tenant and user identity so a flagged submission can be traced back
// to the site and auditor that produced it. Span names follow otelgin's
// "METHOD route_pattern" convention.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	base := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			tagSpanIdentity(c, span)
		}
	}
}

func tagSpanIdentity(c *gin.Context, span trace.Span) {
	if rid := spanRequestID(c); rid != "" {
		span.SetAttributes(attribute.String("request_id", rid))
	}
	if tid := spanTenantID(c); tid != "" {
		span.SetAttributes(attribute.String("tenant_id", tid))
	}
	if uid := spanUserID(c); uid != "" {
		span.SetAttributes(attribute.String("user_id", uid))
	}
}

// spanRequestID prefers the ID set by the RequestID middleware. Raw
// header values are truncated before they can bloat a trace.
func spanRequestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// spanTenantID prefers the JWT claim; the X-Tenant-ID header is only
// trusted when it looks like a UUID, since arbitrary header values
// would otherwise end up as trace attributes.
func spanTenantID(c *gin.Context) string {
	if v, ok := c.Get(JWTTenantIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	header := c.GetHeader("X-Tenant-ID")
	if header != "" && isValidTenantID(header) {
		return header
	}
	return ""
}

func isValidTenantID(tenantID string) bool {
	return len(tenantID) <= MaxTenantIDLength && uuidRegex.MatchString(tenantID)
}

func spanUserID(c *gin.Context) string {
	if v, ok := c.Get(JWTUserIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// SpanErrorMarker marks spans as errored for 4xx and 5xx responses.
// Place it after the Tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}

		var msg string
		switch {
		case status >= http.StatusInternalServerError:
			msg = "Internal Server Error"
		case status == http.StatusUnauthorized:
			msg = "Unauthorized"
		case status == http.StatusForbidden:
			msg = "Forbidden"
		case status == http.StatusNotFound:
			msg = "Not Found"
		default:
			msg = "Client Error"
		}
		span.SetStatus(codes.Error, msg)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

// TracingAttributeInjector re-tags the span once authentication has
// populated the JWT claims. Place it after both Tracing and JWT.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			tagSpanIdentity(c, span)
		}
		c.Next()
	}
}
