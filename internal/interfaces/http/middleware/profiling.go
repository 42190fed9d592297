// Package middleware provides HTTP middleware for the ledger service.
package middleware

import (
	"context"
	"strings"

	"github.com/chantier/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are exact paths that never get profiling labels.
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that never get profiling labels.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig labels every request except probes and doc routes.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// Profiling returns profiling middleware with the default configuration.
// It attaches Pyroscope labels to the request context so CPU samples can
// be sliced by route, method and chantier in the profiler UI.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig returns profiling middleware with custom configuration.
// Labels attached per request:
//   - controller: resource segment of the route ("achats", "factures", ...)
//   - route: the matched pattern ("/api/v1/achats/:id"), never the raw path
//   - method: HTTP method
//   - chantier_id: for chantier-scoped endpoints
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if skipProfiling(cfg, c.Request.URL.Path) {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), requestLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipProfiling(cfg ProfilingConfig, path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// requestLabels collects the profiling labels for one request. Every label
// is pattern-derived, keeping cardinality bounded regardless of traffic.
func requestLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 4)

	if method := c.Request.Method; method != "" {
		labels[telemetry.ProfilingLabelMethod] = method
	}

	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}
	if controller := controllerSegment(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}

	// Chantier-scoped routes carry the ID as a path parameter; list
	// endpoints may pass it as a query filter instead.
	chantierID := c.Param("chantier_id")
	if chantierID == "" {
		chantierID = c.Query("chantier_id")
	}
	if chantierID != "" {
		labels[telemetry.ProfilingLabelChantierID] = chantierID
	}

	return labels
}

// controllerSegment picks the resource name out of a route pattern:
// "/api/v1/achats/:id" yields "achats". The "api" prefix, version
// segments and path parameters are skipped.
func controllerSegment(route string) string {
	for _, part := range strings.Split(route, "/") {
		switch {
		case part == "" || part == "api":
		case isVersionSegment(part):
		case strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{"):
		default:
			return part
		}
	}
	return ""
}

// isVersionSegment reports whether a path segment looks like "v1", "v2", ...
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}

// ProfilingAttributeInjector is an alias for the default profiling
// middleware, registered after routing so the matched pattern is available.
func ProfilingAttributeInjector() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}
