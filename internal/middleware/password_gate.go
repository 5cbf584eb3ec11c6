package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"github.com/hexacorn/hexacorn-api/pkg/response"
)

// RequirePasswordChanged blocks accounts still carrying a temporary password.
// Applies to write routes so provisioned CRs must rotate their credentials
// before publishing anything.
func RequirePasswordChanged() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if claims.MustChangePassword {
			response.Error(c, appErrors.ErrMustChangePassword)
			c.Abort()
			return
		}
		c.Next()
	}
}
