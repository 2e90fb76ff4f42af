package core

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// principalKey is the gin context key the auth gate stores the resolved
// User under.
const principalKey = "principal"

// CurrentUser returns the principal attached by AuthRequired.
func CurrentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}

// extractBearerToken pulls the token out of an Authorization header.
// The empty string means no usable bearer token was presented.
func extractBearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthRequired rejects requests without a valid, non-expired bearer
// token and attaches the resolved principal to the context. Failures
// never reach the wrapped handler.
func AuthRequired(tokens TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
			c.Abort()
			return
		}

		user, err := tokens.Authenticate(token)
		if err != nil {
			switch {
			case errors.Is(err, ErrExpiredToken):
				respondError(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired")
			case errors.Is(err, ErrPrincipalNotFound):
				respondError(c, http.StatusUnauthorized, "PRINCIPAL_NOT_FOUND", "user no longer exists")
			case errors.Is(err, ErrInternal):
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "authentication unavailable")
			default:
				respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid token")
			}
			c.Abort()
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

// RequireSelf enforces ownership: the authenticated principal must match
// the :username path parameter. The original API answered mismatches
// with 400; 403 is the default here and 400 stays available behind
// cfg.CompatPermissionStatus. Must run after AuthRequired.
func RequireSelf(cfg Config) gin.HandlerFunc {
	status := http.StatusForbidden
	if cfg.CompatPermissionStatus {
		status = http.StatusBadRequest
	}
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
			c.Abort()
			return
		}
		if user.Username != c.Param("username") {
			respondError(c, status, "PERMISSION_DENIED", "permission denied")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORSMiddleware validates Origin/Referer against the allowed list and
// sets CORS headers. Requests without an Origin header (same-origin
// navigation, curl) pass through.
func CORSMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")
		if origin == "" && referer != "" {
			if u, err := url.Parse(referer); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}

		// Preflight handling
		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}
