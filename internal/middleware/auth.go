package middleware

import (
	"github.com/gin-gonic/gin"
)

// UserContextMiddleware captures the acting user's identity from the gateway
// headers for audit logging. Identity is optional here: authentication itself
// happens upstream, the service only scopes data by hub.
func UserContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		if email := c.GetHeader("X-User-Email"); email != "" {
			c.Set("user_email", email)
		}
		c.Next()
	}
}

// GetUserID retrieves the acting user's ID from gin context, empty when the
// gateway supplied none.
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
