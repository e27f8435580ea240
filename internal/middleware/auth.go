package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clipstream/server/internal/config"
	"clipstream/server/internal/security"
)

const principalKey = "principal"

// Auth accepts the access token either as a bearer header or as a "token"
// query parameter. The query form exists for playback elements (<video>,
// range-requesting players) that cannot attach custom headers.
func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		} else if q := c.Query("token"); q != "" {
			tokenStr = q
		}

		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		if claims.UserID == "" || claims.TenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_claims"})
			return
		}

		c.Set(principalKey, *claims)
		c.Next()
	}
}

// Principal returns the authenticated claims set by Auth.
func Principal(c *gin.Context) (security.AccessClaims, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return security.AccessClaims{}, false
	}
	claims, ok := val.(security.AccessClaims)
	return claims, ok
}
