package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/metrics"
	"github.com/Skotchmaster/user_auth/internal/models"
	"github.com/Skotchmaster/user_auth/internal/tokens"
	"github.com/Skotchmaster/user_auth/internal/transport"
)

const bearerPrefix = "bearer "

type AccountReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type AccessVerifier interface {
	ParseAccess(raw string) (*tokens.AccessClaims, error)
}

// SessionAuth verifies the bearer access token of every request against the
// live account. It never writes to the store.
type SessionAuth struct {
	Accounts AccountReader
	Tokens   AccessVerifier
	Metrics  *metrics.Auth
}

func NewSessionAuth(accounts AccountReader, verifier AccessVerifier, m *metrics.Auth) *SessionAuth {
	return &SessionAuth{Accounts: accounts, Tokens: verifier, Metrics: m}
}

func (m *SessionAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := m.authenticate(c)
		if err != nil {
			return err
		}
		setIdentity(c, id)
		return next(c)
	}
}

func (m *SessionAuth) authenticate(c echo.Context) (*domain.Identity, error) {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("mw", "auth")

	raw, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return nil, m.reject(l, domain.ErrMissingToken)
	}

	claims, err := m.Tokens.ParseAccess(raw)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return nil, m.reject(l, domain.ErrTokenExpired)
		}
		return nil, m.reject(l, domain.ErrInvalidToken)
	}
	accountID, err := tokens.SubjectID(claims.RegisteredClaims)
	if err != nil {
		return nil, m.reject(l, domain.ErrInvalidToken)
	}

	acc, err := m.Accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, m.reject(l, domain.ErrInvalidToken)
		}
		l.Error("auth_failed", "status", 500, "error", err)
		return nil, transport.Error(fmt.Errorf("load account: %w", err))
	}
	if acc.RefreshEpoch != claims.Epoch || acc.Status != domain.StatusActive {
		return nil, m.reject(l.With("account_id", acc.ID), domain.ErrSessionSuperseded)
	}

	return &domain.Identity{
		AccountID: acc.ID,
		Username:  acc.Username,
		Role:      acc.Role,
		Epoch:     acc.RefreshEpoch,
	}, nil
}

func (m *SessionAuth) reject(l *slog.Logger, err error) error {
	reason := domain.Code(err)
	l.Warn("auth_rejected", "status", 401, "reason", reason)
	m.Metrics.Rejection(reason)
	return transport.Error(err)
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively and the token must not be empty.
func BearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
