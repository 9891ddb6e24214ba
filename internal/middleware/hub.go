package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pushkindt/pushkind-dantes/internal/models"
)

// HubMiddleware extracts and validates hub context.
// SECURITY: No default hub fallback - requests without hub context are rejected.
func HubMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hubID := c.GetHeader("X-Hub-ID")

		if hubID == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "HUB_REQUIRED",
					Message: "Hub ID is required. Include X-Hub-ID header.",
				},
			})
			c.Abort()
			return
		}

		c.Set("hub_id", hubID)
		c.Next()
	}
}

// GetHubID retrieves the hub ID from gin context.
func GetHubID(c *gin.Context) string {
	return c.GetString("hub_id")
}
