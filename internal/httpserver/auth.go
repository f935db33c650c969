package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/middleware/auth"
	"github.com/Skotchmaster/user_auth/internal/service"
	"github.com/Skotchmaster/user_auth/internal/transport"
)

type AuthHTTP struct {
	Auth    *service.AuthService
	Users   *service.UserService
	Cookies Cookies
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sum, err := h.Users.Register(ctx, service.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return transport.Error(err)
	}

	return c.JSON(http.StatusCreated, sum)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return transport.Error(err)
	}

	c.SetCookie(h.Cookies.Refresh(res.RefreshToken, res.RefreshExp))
	return c.JSON(http.StatusOK, tokenResponse(res))
}

// Refresh reads the refresh token from the cookie, falling back to the body.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var presented string
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		presented = ck.Value
	} else {
		var req transport.RefreshRequest
		if err := c.Bind(&req); err != nil {
			l.Warn("refresh_error", "status", 400, "error", err)
		}
		presented = req.RefreshToken
	}
	if presented == "" {
		return transport.Error(domain.ErrInvalidRefreshToken)
	}

	res, err := h.Auth.Refresh(ctx, presented)
	if err != nil {
		c.SetCookie(h.Cookies.ClearRefresh())
		return transport.Error(err)
	}

	c.SetCookie(h.Cookies.Refresh(res.RefreshToken, res.RefreshExp))
	return c.JSON(http.StatusOK, tokenResponse(res))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return transport.Error(domain.ErrMissingToken)
	}

	if err := h.Auth.Logout(c.Request().Context(), id.AccountID); err != nil {
		return transport.Error(err)
	}

	c.SetCookie(h.Cookies.ClearRefresh())
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// LogoutAll ends every session of the caller, including other devices.
func (h *AuthHTTP) LogoutAll(c echo.Context) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return transport.Error(domain.ErrMissingToken)
	}

	epoch, err := h.Auth.RevokeSessions(c.Request().Context(), id.AccountID)
	if err != nil {
		return transport.Error(err)
	}

	c.SetCookie(h.Cookies.ClearRefresh())
	return c.JSON(http.StatusOK, transport.RevokeResponse{Epoch: epoch})
}

func tokenResponse(res *service.LoginResult) transport.TokenResponse {
	return transport.TokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(res.AccessExp).Round(time.Second) / time.Second),
		Account:      res.Account,
	}
}
