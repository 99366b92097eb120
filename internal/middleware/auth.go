package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/academia-sur/academy-api/internal/service"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
	"github.com/academia-sur/academy-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing the resolved identity.
const ContextIdentityKey = "currentIdentity"

// Auth protects routes by requiring a valid access token. The caller's
// role is resolved from the stored profile on every request, so a role
// change takes effect immediately regardless of token age.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		identity, err := authService.ResolveIdentity(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}
