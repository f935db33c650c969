package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/events"
	"github.com/Skotchmaster/user_auth/internal/hash"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/metrics"
	"github.com/Skotchmaster/user_auth/internal/models"
	"github.com/Skotchmaster/user_auth/internal/tokens"
)

// AuthService drives the session lifecycle: login, refresh, logout and
// forced revocation.
type AuthService struct {
	Repo    AccountStore
	Hasher  PasswordHasher
	Tokens  TokenIssuer
	Events  events.Publisher
	Metrics *metrics.Auth
	Now     func() time.Time
}

func NewAuthService(repo AccountStore, hasher PasswordHasher, codec TokenIssuer, pub events.Publisher, m *metrics.Auth) *AuthService {
	return &AuthService{
		Repo:    repo,
		Hasher:  hasher,
		Tokens:  codec,
		Events:  pub,
		Metrics: m,
		Now:     time.Now,
	}
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	Account      domain.AccountSummary
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	username := NormalizeUsername(identifier)
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	acc, err := s.Repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		l.Error("login_failed", "status", 500, "error", err)
		s.Metrics.Login("error")
		return nil, fmt.Errorf("login: %w", err)
	}

	if acc == nil || acc.Status == domain.StatusDeleted {
		s.Hasher.VerifyDummy(password)
		s.loginFailed(ctx, l, uuid.Nil, username, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if !s.Hasher.Verify(acc.PasswordHash, password) {
		s.loginFailed(ctx, l, acc.ID, username, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if acc.Status != domain.StatusActive {
		s.loginFailed(ctx, l, acc.ID, username, domain.ErrAccountNotActive)
		return nil, domain.ErrAccountNotActive
	}

	res, fingerprint, err := s.issue(acc)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		s.Metrics.Login("error")
		return nil, err
	}

	now := clock(s.Now)
	if err := s.Repo.RecordLogin(ctx, acc.ID, fingerprint, now.UTC()); err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot store session", "error", err)
		s.Metrics.Login("error")
		return nil, fmt.Errorf("login: %w", err)
	}

	s.Metrics.Login("ok")
	l.Info("login_successful", "account_id", acc.ID)
	publish(ctx, s.Events, l, events.Event{Type: events.LoginSucceeded, AccountID: acc.ID, Username: acc.Username}, now)
	return res, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed: a second use fails even while it is unexpired.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.ParseRefresh(presented)
	if err != nil {
		return nil, s.refreshFailed(l, "bad_token", err)
	}
	id, err := tokens.SubjectID(claims.RegisteredClaims)
	if err != nil {
		return nil, s.refreshFailed(l, "bad_subject", err)
	}
	l = l.With("account_id", id)

	acc, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.refreshFailed(l, "unknown_account", nil)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		s.Metrics.Refresh("error")
		return nil, fmt.Errorf("refresh: %w", err)
	}

	switch {
	case acc.Status != domain.StatusActive:
		return nil, s.refreshFailed(l, "account_not_active", nil)
	case claims.Epoch != acc.RefreshEpoch:
		return nil, s.refreshFailed(l, "epoch_mismatch", nil)
	case !hash.FingerprintMatches(presented, acc.RefreshFingerprint):
		return nil, s.refreshFailed(l, "fingerprint_mismatch", nil)
	}

	res, next, err := s.issue(acc)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		s.Metrics.Refresh("error")
		return nil, err
	}

	rotated, err := s.Repo.RotateFingerprint(ctx, acc.ID, acc.RefreshEpoch, *acc.RefreshFingerprint, next)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		s.Metrics.Refresh("error")
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !rotated {
		return nil, s.refreshFailed(l, "concurrent_refresh", nil)
	}

	s.Metrics.Refresh("ok")
	l.Info("refresh_successful")
	publish(ctx, s.Events, l, events.Event{Type: events.TokenRefreshed, AccountID: acc.ID, Username: acc.Username}, clock(s.Now))
	return res, nil
}

// Logout ends the account's refresh session. Unknown accounts and repeated
// calls succeed.
func (s *AuthService) Logout(ctx context.Context, accountID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "account_id", accountID)

	if err := s.Repo.ClearFingerprint(ctx, accountID); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot clear session", "error", err)
		return fmt.Errorf("logout: %w", err)
	}

	l.Info("successful_logout")
	publish(ctx, s.Events, l, events.Event{Type: events.LoggedOut, AccountID: accountID}, clock(s.Now))
	return nil
}

// RevokeSessions invalidates every access and refresh token of the account
// and returns the new epoch.
func (s *AuthService) RevokeSessions(ctx context.Context, accountID uuid.UUID) (int64, error) {
	l := logging.FromContext(ctx).With("svc", "auth.revoke", "account_id", accountID)

	epoch, err := s.Repo.BumpEpoch(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			l.Warn("revoke_failed", "status", 404)
			return 0, err
		}
		l.Error("revoke_failed", "status", 500, "error", err)
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}

	l.Info("sessions_revoked", "epoch", epoch)
	publish(ctx, s.Events, l, events.Event{Type: events.SessionsRevoked, AccountID: accountID}, clock(s.Now))
	return epoch, nil
}

func (s *AuthService) issue(acc *models.Account) (*LoginResult, string, error) {
	sub := tokens.Subject{
		AccountID: acc.ID,
		Username:  acc.Username,
		Role:      acc.Role,
		Epoch:     acc.RefreshEpoch,
	}

	access, accessExp, err := s.Tokens.SignAccess(sub)
	if err != nil {
		return nil, "", err
	}
	refresh, refreshExp, err := s.Tokens.SignRefresh(sub)
	if err != nil {
		return nil, "", err
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		Account:      acc.Summary(),
	}, hash.Fingerprint(refresh), nil
}

func (s *AuthService) loginFailed(ctx context.Context, l *slog.Logger, id uuid.UUID, username string, err error) {
	reason := domain.Code(err)
	l.Warn("login_failed", "status", 401, "reason", reason)
	s.Metrics.Login(reason)
	publish(ctx, s.Events, l, events.Event{Type: events.LoginFailed, AccountID: id, Username: username, Reason: reason}, clock(s.Now))
}

func (s *AuthService) refreshFailed(l *slog.Logger, reason string, cause error) error {
	if cause != nil {
		l.Warn("refresh_failed", "status", 401, "reason", reason, "error", cause)
	} else {
		l.Warn("refresh_failed", "status", 401, "reason", reason)
	}
	s.Metrics.Refresh(reason)
	return domain.ErrInvalidRefreshToken
}
