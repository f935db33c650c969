package transport

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPermissions):
		return http.StatusForbidden
	case domain.IsAuthentication(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error converts err into an *echo.HTTPError carrying an ErrorBody. The
// original error stays reachable through Unwrap.
func Error(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return normalize(he)
	}

	status := Status(err)
	msg := domain.Message(err)
	if errors.Is(err, domain.ErrValidation) {
		msg = strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	}
	return echo.NewHTTPError(status, ErrorBody{Code: domain.Code(err), Message: msg}).SetInternal(err)
}

// normalize rewrites errors raised by echo itself (unknown route, bad bind)
// into an ErrorBody.
func normalize(he *echo.HTTPError) *echo.HTTPError {
	if _, ok := he.Message.(ErrorBody); ok {
		return he
	}
	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}
	out := echo.NewHTTPError(he.Code, ErrorBody{Code: statusCode(he.Code), Message: msg})
	if he.Internal != nil {
		out = out.SetInternal(he.Internal)
	}
	return out
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		if status >= 500 {
			return "internal"
		}
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
