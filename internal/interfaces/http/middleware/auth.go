// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/pkg/auth"
)

// AuthMiddleware creates JWT authentication middleware for operator
// endpoints
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("operator_id", claims.OperatorID)
		c.Set("operator_email", claims.Email)
		c.Set("token_claims", claims)

		c.Next()
	}
}

// GetOperatorIDFromContext extracts the operator ID from gin context
func GetOperatorIDFromContext(c *gin.Context) (uint, bool) {
	operatorID, exists := c.Get("operator_id")
	if !exists {
		return 0, false
	}
	return operatorID.(uint), true
}

// GetOperatorEmailFromContext extracts the operator email from gin context
func GetOperatorEmailFromContext(c *gin.Context) (string, bool) {
	email, exists := c.Get("operator_email")
	if !exists {
		return "", false
	}
	return email.(string), true
}
