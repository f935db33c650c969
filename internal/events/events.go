package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	LoginSucceeded  = "login_succeeded"
	LoginFailed     = "login_failed"
	TokenRefreshed  = "token_refreshed"
	LoggedOut       = "logged_out"
	SessionsRevoked = "sessions_revoked"
	UserRegistered  = "user_registered"
	PasswordChanged = "password_changed"
	AccountDeleted  = "account_deleted"
	StatusChanged   = "status_changed"
)

// Event is a lifecycle record. It never carries credentials or tokens.
type Event struct {
	Type      string    `json:"type"`
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi delivers to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
