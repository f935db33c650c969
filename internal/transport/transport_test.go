package transport

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/user_auth/internal/domain"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrInsufficientPermissions, http.StatusForbidden},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrAccountNotActive, http.StatusUnauthorized},
		{domain.ErrInvalidRefreshToken, http.StatusUnauthorized},
		{domain.ErrMissingToken, http.StatusUnauthorized},
		{domain.ErrInvalidToken, http.StatusUnauthorized},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{domain.ErrSessionSuperseded, http.StatusUnauthorized},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestError_Body(t *testing.T) {
	t.Parallel()

	he := Error(fmt.Errorf("%w: parse: signature is invalid", domain.ErrTokenExpired))
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, ErrorBody{Code: "token_expired", Message: "access token expired"}, he.Message)
	assert.ErrorIs(t, he, domain.ErrTokenExpired)

	he = Error(fmt.Errorf("%w: %v", domain.ErrValidation, errors.New("username: cannot be blank.")))
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, ErrorBody{Code: "validation_failed", Message: "username: cannot be blank."}, he.Message)

	he = Error(fmt.Errorf("login: %w", errors.New("connection refused")))
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Equal(t, ErrorBody{Code: "internal", Message: "internal server error"}, he.Message)
}

func TestError_EchoErrors(t *testing.T) {
	t.Parallel()

	he := Error(echo.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, he.Code)
	assert.Equal(t, ErrorBody{Code: "not_found", Message: "Not Found"}, he.Message)

	he = Error(echo.NewHTTPError(http.StatusTooManyRequests))
	assert.Equal(t, ErrorBody{Code: "too_many_requests", Message: "Too Many Requests"}, he.Message)

	same := Error(domain.ErrConflict)
	assert.Same(t, same, Error(same))
}

func TestDTOValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, LoginRequest{Username: "alice"}.Validate())
	require.NoError(t, LoginRequest{Username: "alice", Password: "x"}.Validate())
	require.Error(t, RegisterRequest{Password: "x"}.Validate())
	require.Error(t, ChangePasswordRequest{CurrentPassword: "x"}.Validate())
	require.Error(t, SetStatusRequest{}.Validate())
	require.NoError(t, SetStatusRequest{Status: "ACTIVE"}.Validate())
}
