package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/user_auth/internal/db"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/middleware/auth"
	"github.com/Skotchmaster/user_auth/internal/middleware/csrf"
)

type Deps struct {
	DB          *gorm.DB
	AuthHandler *AuthHTTP
	Users       *UsersHTTP
	Admin       *AdminHTTP
	SessionAuth *auth.SessionAuth
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	v1 := e.Group("/api/v1")
	requireAuth := d.SessionAuth.RequireAuth

	a := v1.Group("/auth")
	a.POST("/register", d.AuthHandler.Register)
	a.POST("/login", d.AuthHandler.Login)
	a.POST("/refresh", d.AuthHandler.Refresh, csrf.OriginGuard(refreshCookieName))
	a.POST("/logout", d.AuthHandler.Logout, requireAuth)
	a.POST("/logout-all", d.AuthHandler.LogoutAll, requireAuth)

	me := v1.Group("/users/me", requireAuth)
	me.GET("", d.Users.Me)
	me.PATCH("", d.Users.UpdateMe)
	me.DELETE("", d.Users.DeleteMe)
	me.PUT("/password", d.Users.ChangePassword)

	admin := v1.Group("/admin", requireAuth, auth.AdminOnly())
	admin.GET("/users/:id", d.Admin.GetUser)
	admin.PATCH("/users/:id/status", d.Admin.SetStatus)
	admin.POST("/users/:id/revoke-sessions", d.Admin.RevokeSessions)
	admin.GET("/users/:id/audit", d.Admin.Audit)
}

func (d *Deps) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx, d.DB); err != nil {
		logging.FromContext(ctx).Error("readiness_failed", "status", 503, "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
