package csrf

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/transport"
)

// OriginGuard rejects cross-site requests that ride on the named cookie.
// Requests without the cookie, or without Origin and Referer headers
// (non-browser clients), pass through.
func OriginGuard(cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if ck, err := req.Cookie(cookieName); err != nil || ck.Value == "" {
				return next(c)
			}

			origin := req.Header.Get("Origin")
			if origin == "" {
				origin = req.Header.Get("Referer")
			}
			if origin == "" {
				return next(c)
			}

			if !sameOrigin(origin, req) {
				logging.FromContext(req.Context()).Warn("csrf_rejected", "status", 403, "origin", origin)
				return echo.NewHTTPError(http.StatusForbidden, transport.ErrorBody{
					Code:    "invalid_origin",
					Message: "cross-site request rejected",
				})
			}
			return next(c)
		}
	}
}

func sameOrigin(origin string, r *http.Request) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, schemeOf(r)) && strings.EqualFold(u.Host, r.Host)
}

func schemeOf(r *http.Request) string {
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		return p
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
