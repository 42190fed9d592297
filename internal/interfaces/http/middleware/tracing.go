// Package middleware provides HTTP middleware for the ledger service.
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
	// MaxRequestIDLength caps the X-Request-ID header; anything longer is
	// truncated before it reaches a span attribute.
	MaxRequestIDLength = 128
	// MaxChantierIDLength caps chantier IDs taken from the route or query.
	MaxChantierIDLength = 64
)

// chantierIDPattern requires a UUID; route parameters are attacker
// controlled and must not inject arbitrary text into traces.
var chantierIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName identifies this service in trace backends.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns the ledger's default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "chantier-ledger",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with the default
// configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and enriches each server span with the
// ledger's correlation attributes:
//   - request_id: from the RequestID middleware or the inbound header
//   - chantier_id: from the matched route, for chantier-scoped endpoints
//   - user_id: from JWT claims
//
// Span names follow otelgin's "METHOD route_pattern" convention, e.g.
// "GET /api/v1/achats/:id".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	base := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		base(c)

		// otelgin has created the span by now; attach what we know.
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			applySpanAttributes(c, span)
		}
	}
}

func applySpanAttributes(c *gin.Context, span trace.Span) {
	if requestID := traceRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if chantierID := traceChantierID(c); chantierID != "" {
		span.SetAttributes(attribute.String("chantier_id", chantierID))
	}
	if userID := traceUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user_id", userID))
	}
}

// traceRequestID prefers the ID minted by the RequestID middleware and
// falls back to the inbound header, truncated to MaxRequestIDLength.
func traceRequestID(c *gin.Context) string {
	if v, exists := c.Get("request_id"); exists {
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

// traceChantierID reads the chantier scope from the route parameter or the
// query filter. Values that are not UUIDs are dropped.
func traceChantierID(c *gin.Context) string {
	if id := c.Param("chantier_id"); validChantierID(id) {
		return id
	}
	if id := c.Query("chantier_id"); validChantierID(id) {
		return id
	}
	return ""
}

func validChantierID(id string) bool {
	return id != "" && len(id) <= MaxChantierIDLength && chantierIDPattern.MatchString(id)
}

// traceUserID reads the acting user from JWT claims.
func traceUserID(c *gin.Context) string {
	if v, exists := c.Get(JWTUserIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// errorDescription maps a 4xx/5xx status onto a stable span status text.
func errorDescription(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "Internal Server Error"
	case statusCode == http.StatusUnauthorized:
		return "Unauthorized"
	case statusCode == http.StatusForbidden:
		return "Forbidden"
	case statusCode == http.StatusNotFound:
		return "Not Found"
	default:
		return "Client Error"
	}
}

// SpanErrorMarker marks the server span as failed for 4xx/5xx responses.
// Register it AFTER the Tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, errorDescription(statusCode))
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}

// TracingAttributeInjector re-applies the correlation attributes once
// authentication has run, so user_id lands on the span. Register it AFTER
// both Tracing and the JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			applySpanAttributes(c, span)
		}
		c.Next()
	}
}
