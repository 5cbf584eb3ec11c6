package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"github.com/hexacorn/hexacorn-api/pkg/response"
)

type maintenanceChecker interface {
	Maintenance(ctx context.Context) (bool, string, error)
}

// Maintenance blocks non-admin requests while the maintenance flag is set.
// Admins pass through so they can switch the flag back off.
func Maintenance(settings maintenanceChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, exists := c.Get(ContextUserKey); exists {
			if typed, ok := claims.(*models.JWTClaims); ok && typed.Role == models.RoleAdmin {
				c.Next()
				return
			}
		}

		enabled, message, err := settings.Maintenance(c.Request.Context())
		if err != nil {
			// A broken settings read should not take the whole API down.
			c.Next()
			return
		}
		if enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrMaintenanceMode, message))
			c.Abort()
			return
		}
		c.Next()
	}
}
