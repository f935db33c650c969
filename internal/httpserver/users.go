package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/middleware/auth"
	"github.com/Skotchmaster/user_auth/internal/service"
	"github.com/Skotchmaster/user_auth/internal/transport"
)

type UsersHTTP struct {
	Users   *service.UserService
	Cookies Cookies
}

func (h *UsersHTTP) Me(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	p, err := h.Users.Profile(c.Request().Context(), id.AccountID)
	if err != nil {
		return transport.Error(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *UsersHTTP) UpdateMe(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	var req transport.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return transport.Error(domain.ErrValidation)
	}

	p, err := h.Users.UpdateProfile(c.Request().Context(), id.AccountID, req.DisplayName)
	if err != nil {
		return transport.Error(err)
	}
	return c.JSON(http.StatusOK, p)
}

// ChangePassword ends every session of the caller; the client has to log in again.
func (h *UsersHTTP) ChangePassword(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	var req transport.ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.Users.ChangePassword(c.Request().Context(), id.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		return transport.Error(err)
	}

	c.SetCookie(h.Cookies.ClearRefresh())
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

func (h *UsersHTTP) DeleteMe(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	if err := h.Users.DeleteSelf(c.Request().Context(), id.AccountID); err != nil {
		return transport.Error(err)
	}

	c.SetCookie(h.Cookies.ClearRefresh())
	return c.NoContent(http.StatusNoContent)
}

func caller(c echo.Context) (*domain.Identity, error) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return nil, transport.Error(domain.ErrMissingToken)
	}
	return id, nil
}
