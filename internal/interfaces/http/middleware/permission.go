package middleware

import (
	"net/http"
	"strings"

	"github.com/chantier/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Permissions follow the "resource:action" convention, e.g. "achat:create" or
// "outbox:read". JWT claims carry the flat permission list; these guards only
// compare, they never consult storage.

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Logger *zap.Logger
	// OnDenied overrides the default 403 response when set
	OnDenied func(c *gin.Context, requiredPerms []string)
}

// RequirePermission requires a single permission
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission lets the request through when the caller holds at
// least one of the listed permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permissions...)
}

// RequireAnyPermissionWithConfig is RequireAnyPermission with logging and a
// custom denial hook
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return permissionGuard(cfg, permissions, func(claims *auth.Claims) bool {
		return claims.HasAnyPermission(permissions...)
	})
}

// RequireAllPermissions lets the request through only when the caller holds
// every listed permission
func RequireAllPermissions(permissions ...string) gin.HandlerFunc {
	return permissionGuard(PermissionConfig{}, permissions, func(claims *auth.Claims) bool {
		return claims.HasAllPermissions(permissions...)
	})
}

// permissionGuard is the shared middleware core: resolve claims, apply the
// check, deny with 403 otherwise.
func permissionGuard(cfg PermissionConfig, required []string, check func(*auth.Claims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			denyPermission(c, cfg, required, "No authentication claims found")
			return
		}

		if !check(claims) {
			denyPermission(c, cfg, required, "User lacks required permission")
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("Permission check passed",
				zap.String("user_id", claims.UserID),
				zap.Strings("required", required),
			)
		}

		c.Next()
	}
}

// RequireResource derives the required permission from the HTTP method:
// GET needs resource:read, POST resource:create, PUT/PATCH resource:update,
// DELETE resource:delete.
func RequireResource(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		permission := resource + ":" + methodToAction(c.Request.Method)
		permissionGuard(PermissionConfig{}, []string{permission}, func(claims *auth.Claims) bool {
			return claims.HasPermission(permission)
		})(c)
	}
}

// RequireResourceAction requires a specific resource:action permission,
// e.g. RequireResourceAction("achat", "confirm") for the status transition
// endpoints that do not map onto a CRUD verb.
func RequireResourceAction(resource, action string) gin.HandlerFunc {
	return RequirePermission(resource + ":" + action)
}

func methodToAction(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func denyPermission(c *gin.Context, cfg PermissionConfig, requiredPerms []string, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredPerms)
		return
	}

	if cfg.Logger != nil {
		claims := GetJWTClaims(c)
		userID := ""
		userPerms := []string{}
		if claims != nil {
			userID = claims.UserID
			userPerms = claims.Permissions
		}

		cfg.Logger.Warn("Permission denied",
			zap.String("reason", reason),
			zap.String("user_id", userID),
			zap.Strings("required_permissions", requiredPerms),
			zap.Strings("user_permissions", userPerms),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	abortForbidden(c)
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: insufficient permissions",
		},
	})
}

// RoutePermission defines the permission requirement for one route
type RoutePermission struct {
	Method      string // HTTP method, or "*" for all
	Path        string // exact path, or prefix with a trailing *
	Permissions []string
	RequireAll  bool // require every permission instead of any
}

// RoutePermissionConfig holds configuration for route-table permission
// checking
type RoutePermissionConfig struct {
	Routes []RoutePermission
	Logger *zap.Logger
	// DefaultDeny rejects requests that match no route entry
	DefaultDeny bool
	OnDenied    func(c *gin.Context, route *RoutePermission)
}

// RoutePermissionMiddleware checks permissions against a central route table
// instead of per-route middleware chains
func RoutePermissionMiddleware(cfg RoutePermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		var matchedRoute *RoutePermission
		for i := range cfg.Routes {
			if matchRoute(&cfg.Routes[i], method, path) {
				matchedRoute = &cfg.Routes[i]
				break
			}
		}

		if matchedRoute == nil {
			if cfg.DefaultDeny {
				if cfg.Logger != nil {
					cfg.Logger.Warn("No route permission defined, access denied",
						zap.String("path", path),
						zap.String("method", method),
					)
				}
				denyRoutePermission(c, cfg, nil)
				return
			}
			c.Next()
			return
		}

		claims := GetJWTClaims(c)
		if claims == nil {
			denyRoutePermission(c, cfg, matchedRoute)
			return
		}

		var allowed bool
		if matchedRoute.RequireAll {
			allowed = claims.HasAllPermissions(matchedRoute.Permissions...)
		} else {
			allowed = claims.HasAnyPermission(matchedRoute.Permissions...)
		}
		if !allowed {
			denyRoutePermission(c, cfg, matchedRoute)
			return
		}

		c.Next()
	}
}

func matchRoute(route *RoutePermission, method, path string) bool {
	if route.Method != "*" && !strings.EqualFold(route.Method, method) {
		return false
	}
	if strings.HasSuffix(route.Path, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(route.Path, "*"))
	}
	return route.Path == path
}

func denyRoutePermission(c *gin.Context, cfg RoutePermissionConfig, route *RoutePermission) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, route)
		return
	}

	if cfg.Logger != nil {
		claims := GetJWTClaims(c)
		userID := ""
		if claims != nil {
			userID = claims.UserID
		}
		requiredPerms := []string{}
		if route != nil {
			requiredPerms = route.Permissions
		}

		cfg.Logger.Warn("Route permission denied",
			zap.String("user_id", userID),
			zap.Strings("required_permissions", requiredPerms),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	abortForbidden(c)
}

// HasPermission reports whether the caller holds the permission. For use
// inside handlers that branch on authorization.
func HasPermission(c *gin.Context, permission string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasPermission(permission)
}

// HasAnyPermission reports whether the caller holds any of the permissions
func HasAnyPermission(c *gin.Context, permissions ...string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasAnyPermission(permissions...)
}

// HasAllPermissions reports whether the caller holds all of the permissions
func HasAllPermissions(c *gin.Context, permissions ...string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasAllPermissions(permissions...)
}

// MustHavePermission aborts with 403 when the caller lacks the permission.
// Returns true when the request may proceed.
func MustHavePermission(c *gin.Context, permission string) bool {
	if !HasPermission(c, permission) {
		abortForbidden(c)
		return false
	}
	return true
}

// CheckPermissionFunc is a custom permission predicate over the JWT claims
// and the request
type CheckPermissionFunc func(claims *auth.Claims, c *gin.Context) bool

// RequireCustomPermission runs a custom predicate for authorization rules
// that a flat permission string cannot express
func RequireCustomPermission(checkFunc CheckPermissionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			denyPermission(c, PermissionConfig{}, []string{"custom"}, "No authentication claims found")
			return
		}
		if !checkFunc(claims, c) {
			denyPermission(c, PermissionConfig{}, []string{"custom"}, "Custom permission check failed")
			return
		}
		c.Next()
	}
}
