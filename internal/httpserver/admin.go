package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/events"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/service"
	"github.com/Skotchmaster/user_auth/internal/transport"
)

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 100
)

type AuditReader interface {
	Enabled() bool
	Recent(ctx context.Context, accountID uuid.UUID, n int) ([]events.Event, error)
}

type AdminHTTP struct {
	Users *service.UserService
	Auth  *service.AuthService
	Audit AuditReader
}

func (h *AdminHTTP) GetUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	p, err := h.Users.Get(c.Request().Context(), id)
	if err != nil {
		return transport.Error(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHTTP) SetStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req transport.SetStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := h.Users.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return transport.Error(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHTTP) RevokeSessions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	epoch, err := h.Auth.RevokeSessions(c.Request().Context(), id)
	if err != nil {
		return transport.Error(err)
	}
	return c.JSON(http.StatusOK, transport.RevokeResponse{Epoch: epoch})
}

func (h *AdminHTTP) Audit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_audit")

	if h.Audit == nil || !h.Audit.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, transport.ErrorBody{
			Code:    "audit_disabled",
			Message: events.ErrAuditDisabled.Error(),
		})
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	limit := defaultAuditLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			return transport.Error(fmt.Errorf("%w: limit: must be between 1 and %d", domain.ErrValidation, maxAuditLimit))
		}
		limit = n
	}

	list, err := h.Audit.Recent(ctx, id, limit)
	if err != nil {
		if errors.Is(err, events.ErrAuditDisabled) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, transport.ErrorBody{Code: "audit_disabled", Message: err.Error()})
		}
		l.Error("audit_failed", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, transport.ErrorBody{Code: "audit_unavailable", Message: "audit index unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": list})
}
