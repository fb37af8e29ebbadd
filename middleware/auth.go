// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"lenslink/models"
	"lenslink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware.
const (
	CtxCallerID   = "callerID"
	CtxCallerRole = "callerRole"
)

// AuthMiddleware verifies the bearer token and stores the caller's id and role.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
				Message: "Missing or invalid Authorization header",
				Code:    "unauthorized",
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		subject, role, err := utils.ExtractIdentity(tokenString)
		if err != nil {
			zap.L().Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token", Code: "unauthorized"})
			return
		}
		switch models.RecipientRole(role) {
		case models.RoleUser, models.RoleVendor:
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{Message: "Unsupported role", Code: "forbidden"})
			return
		}

		c.Set(CtxCallerID, subject)
		c.Set(CtxCallerRole, models.RecipientRole(role))
		c.Next()
	}
}

// RequireRole rejects callers whose role differs from role. Must run after
// AuthMiddleware.
func RequireRole(role models.RecipientRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got, _ := c.Get(CtxCallerRole); got != role {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{
				Message: "This endpoint is only available to " + string(role) + "s",
				Code:    "forbidden",
			})
			return
		}
		c.Next()
	}
}
