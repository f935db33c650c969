package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/transport"
)

// HTTPErrorHandler writes every error as {"code", "message"}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he := transport.Error(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, he.Message)
}

type validatable interface {
	Validate() error
}

func bindAndValidate(c echo.Context, req validatable) error {
	if err := c.Bind(req); err != nil {
		return transport.Error(fmt.Errorf("%w: invalid body", domain.ErrValidation))
	}
	if err := req.Validate(); err != nil {
		return transport.Error(fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}
	return nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, transport.Error(fmt.Errorf("%w: id: must be a uuid", domain.ErrValidation))
	}
	return id, nil
}
