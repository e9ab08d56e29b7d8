package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/training-api/pkg/auth"
)

// Ключи контекста Gin для данных токена ссылки
const (
	ContextLinkID   = "linkID"
	ContextLinkType = "linkType"
)

// ExtractLinkToken создает middleware, извлекающее токен ссылки доступа из
// заголовка Authorization (Bearer) или из query-параметра token. Валидный
// токен кладет linkID и linkType в контекст Gin.
func ExtractLinkToken(tokens *auth.LinkTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			raw = strings.TrimPrefix(header, "Bearer ")
		}
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing link token"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired link token"})
			c.Abort()
			return
		}

		c.Set(ContextLinkID, claims.LinkID)
		c.Set(ContextLinkType, claims.LinkType)
		c.Next()
	}
}
