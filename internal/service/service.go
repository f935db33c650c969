package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/user_auth/internal/events"
	"github.com/Skotchmaster/user_auth/internal/models"
	"github.com/Skotchmaster/user_auth/internal/tokens"
)

// AccountStore is the credential store. *repo.GormRepo implements it.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	RecordLogin(ctx context.Context, id uuid.UUID, fingerprint string, at time.Time) error
	RotateFingerprint(ctx context.Context, id uuid.UUID, epoch int64, old, next string) (bool, error)
	ClearFingerprint(ctx context.Context, id uuid.UUID) error
	BumpEpoch(ctx context.Context, id uuid.UUID) (int64, error)
	ReplacePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
	VerifyDummy(password string)
}

type TokenIssuer interface {
	SignAccess(s tokens.Subject) (string, time.Time, error)
	SignRefresh(s tokens.Subject) (string, time.Time, error)
	ParseRefresh(raw string) (*tokens.RefreshClaims, error)
}

// NormalizeUsername is applied to every identifier before it reaches the store.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// publish delivers e and only logs a failure; events never fail a request.
func publish(ctx context.Context, p events.Publisher, l *slog.Logger, e events.Event, now time.Time) {
	if p == nil {
		return
	}
	e.At = now.UTC()
	if err := p.Publish(ctx, e); err != nil {
		l.Warn("event_publish_failed", "type", e.Type, "error", err)
	}
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
