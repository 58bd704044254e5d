package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/utils"
)

type APIKeyMiddleware struct {
	log *logger.Logger
	key string
}

func NewAPIKeyMiddleware(log *logger.Logger) *APIKeyMiddleware {
	middlewareLogger := log.With("Middleware", "APIKeyMiddleware")
	key := utils.GetEnv("FLIGHT_UPDATE_API_KEY", "zyura@admin", log)
	return &APIKeyMiddleware{log: middlewareLogger, key: key}
}

// RequireKey guards mutating routes. The key is accepted from the x-api-key
// header or an Authorization bearer token.
func (am *APIKeyMiddleware) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(am.key)) != 1 {
			am.log.Warn("Rejected request with bad api key", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if key := c.GetHeader("x-api-key"); key != "" {
		return key
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
