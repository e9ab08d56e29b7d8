package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdminKey создает middleware для административных endpoints.
// Ключ сравнивается за константное время.
func RequireAdminKey(expectedKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expectedKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin API is not configured"})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expectedKey)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid admin key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
