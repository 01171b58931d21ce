package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ashendes/storefront/internal/models"
	"github.com/ashendes/storefront/internal/patterns"
	"github.com/gin-gonic/gin"
)

// Identity headers set by the gateway in front of the storefront
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const callerKey = "caller"

// Authenticate requires a caller identity on every request
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authorized, no user identity",
			})
			return
		}

		c.Set(callerKey, models.Caller{
			UserID: userID,
			Role:   models.ParseRole(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole)))),
		})
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerFrom(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Not authorized as admin",
			})
			return
		}
		c.Next()
	}
}

// Timeout bounds the request context handed to the services
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := patterns.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func callerFrom(c *gin.Context) models.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(models.Caller); ok {
			return caller
		}
	}
	return models.Caller{}
}
