package middleware

import (
	"log"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// RequireRole laisse passer si le rôle du token fait partie des rôles donnés.
// À placer après AuthRequired.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if !slices.Contains(roles, role) {
			log.Printf("🚫 Rôle %q refusé pour %s (attendu: %v)", role, c.FullPath(), roles)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":          "Permission insuffisante",
				"required_roles": roles,
			})
			return
		}
		c.Next()
	}
}
