package domain

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrAccountNotActive    = errors.New("account is not active")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrMissingToken      = errors.New("missing access token")
	ErrInvalidToken      = errors.New("invalid access token")
	ErrTokenExpired      = errors.New("access token expired")
	ErrSessionSuperseded = errors.New("session superseded")

	ErrInsufficientPermissions = errors.New("insufficient permissions")

	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("already exists")
	ErrNotFound   = errors.New("not found")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrAccountNotActive, "account_not_active"},
	{ErrInvalidRefreshToken, "invalid_refresh_token"},
	{ErrMissingToken, "missing_token"},
	{ErrInvalidToken, "invalid_token"},
	{ErrTokenExpired, "token_expired"},
	{ErrSessionSuperseded, "session_superseded"},
	{ErrInsufficientPermissions, "insufficient_permissions"},
	{ErrValidation, "validation_failed"},
	{ErrConflict, "conflict"},
	{ErrNotFound, "not_found"},
}

// Code returns the machine-readable code for err, or "internal" when err
// is not one of the package's sentinel errors.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// Message returns the text of the sentinel error err wraps, so callers can
// show a stable message without leaking the wrapped cause.
func Message(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return "internal server error"
}

// IsAuthentication reports whether err is an authentication failure (401).
func IsAuthentication(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountNotActive),
		errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrSessionSuperseded):
		return true
	}
	return false
}
