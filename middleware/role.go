package middleware

import (
	"lenslink/models"

	"github.com/gin-gonic/gin"
)

// CallerID returns the authenticated caller id.
func CallerID(c *gin.Context) string {
	return c.GetString(CtxCallerID)
}

// CallerRole returns the authenticated caller role.
func CallerRole(c *gin.Context) models.RecipientRole {
	if r, ok := c.Get(CtxCallerRole); ok {
		if role, ok := r.(models.RecipientRole); ok {
			return role
		}
	}
	return ""
}
