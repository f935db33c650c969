package auth

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/transport"
)

// RequireRole lets the request through only when the identity set by
// RequireAuth has one of roles. It must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return transport.Error(domain.ErrMissingToken)
			}
			if !slices.Contains(roles, id.Role) {
				logging.FromContext(c.Request().Context()).
					Warn("access_denied", "status", 403, "reason", "insufficient_permissions", "role", id.Role)
				return transport.Error(domain.ErrInsufficientPermissions)
			}
			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return RequireRole(domain.RoleAdmin)
}
