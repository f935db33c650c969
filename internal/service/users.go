package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/events"
	"github.com/Skotchmaster/user_auth/internal/hash"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

var (
	usernameRules    = []validation.Rule{validation.Required, validation.RuneLength(3, 64), validation.Match(usernamePattern)}
	passwordRules    = []validation.Rule{validation.Required, validation.Length(8, hash.MaxPasswordBytes)}
	displayNameRules = []validation.Rule{validation.RuneLength(0, 128)}
)

type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, usernameRules...),
		validation.Field(&in.Password, passwordRules...),
		validation.Field(&in.DisplayName, displayNameRules...),
	)
}

// UserService manages accounts. Every change that affects who may hold a
// session ends the account's existing sessions.
type UserService struct {
	Repo   AccountStore
	Hasher PasswordHasher
	Events events.Publisher
	Now    func() time.Time
}

func NewUserService(repo AccountStore, hasher PasswordHasher, pub events.Publisher) *UserService {
	return &UserService{Repo: repo, Hasher: hasher, Events: pub, Now: time.Now}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.AccountSummary, error) {
	in.Username = NormalizeUsername(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	l := logging.FromContext(ctx).With("svc", "users.register", "username", in.Username)

	if err := in.Validate(); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return nil, invalid(err)
	}

	acc, err := s.create(ctx, in, domain.RoleUser)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, err
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	l.Info("register_successful", "account_id", acc.ID)
	publish(ctx, s.Events, l, events.Event{Type: events.UserRegistered, AccountID: acc.ID, Username: acc.Username}, clock(s.Now))
	sum := acc.Summary()
	return &sum, nil
}

// EnsureAdmin creates the bootstrap admin unless an account with that
// username already exists. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	in := RegisterInput{Username: NormalizeUsername(username), Password: password}
	if in.Username == "" {
		return false, nil
	}
	l := logging.FromContext(ctx).With("svc", "users.ensure_admin", "username", in.Username)

	if err := in.Validate(); err != nil {
		return false, invalid(err)
	}

	_, err := s.Repo.FindByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	acc, err := s.create(ctx, in, domain.RoleAdmin)
	if errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	l.Info("admin_created", "account_id", acc.ID)
	publish(ctx, s.Events, l, events.Event{Type: events.UserRegistered, AccountID: acc.ID, Username: acc.Username, Reason: "bootstrap_admin"}, clock(s.Now))
	return true, nil
}

func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*domain.AccountProfile, error) {
	acc, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStore("profile", err)
	}
	p := acc.Profile()
	return &p, nil
}

// Get is Profile for administrators; it also returns deleted accounts.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.AccountProfile, error) {
	return s.Profile(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) (*domain.AccountProfile, error) {
	displayName = strings.TrimSpace(displayName)
	if err := validation.Validate(displayName, displayNameRules...); err != nil {
		return nil, invalid(fmt.Errorf("display_name: %w", err))
	}
	if err := s.Repo.UpdateDisplayName(ctx, id, displayName); err != nil {
		return nil, wrapStore("update profile", err)
	}
	return s.Profile(ctx, id)
}

// ChangePassword requires the current password and ends every session of
// the account.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	l := logging.FromContext(ctx).With("svc", "users.change_password", "account_id", id)

	if err := validation.Validate(next, passwordRules...); err != nil {
		return invalid(fmt.Errorf("new_password: %w", err))
	}

	acc, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return wrapStore("change password", err)
	}
	if !s.Hasher.Verify(acc.PasswordHash, current) {
		l.Warn("change_password_failed", "status", 401, "reason", "invalid_credentials")
		return domain.ErrInvalidCredentials
	}

	pw, err := s.Hasher.Hash(next)
	if err != nil {
		l.Error("change_password_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Repo.ReplacePassword(ctx, id, pw); err != nil {
		return wrapStore("change password", err)
	}

	l.Info("password_changed")
	publish(ctx, s.Events, l, events.Event{Type: events.PasswordChanged, AccountID: id, Username: acc.Username}, clock(s.Now))
	return nil
}

func (s *UserService) DeleteSelf(ctx context.Context, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "users.delete", "account_id", id)

	if err := s.Repo.SetStatus(ctx, id, domain.StatusDeleted); err != nil {
		return wrapStore("delete account", err)
	}

	l.Info("account_deleted")
	publish(ctx, s.Events, l, events.Event{Type: events.AccountDeleted, AccountID: id}, clock(s.Now))
	return nil
}

func (s *UserService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*domain.AccountProfile, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	l := logging.FromContext(ctx).With("svc", "users.set_status", "account_id", id)

	if !domain.ValidStatus(status) {
		return nil, invalid(fmt.Errorf("status: must be one of %s, %s, %s", domain.StatusActive, domain.StatusInactive, domain.StatusDeleted))
	}
	if err := s.Repo.SetStatus(ctx, id, status); err != nil {
		return nil, wrapStore("set status", err)
	}

	l.Info("status_changed", "new_status", status)
	publish(ctx, s.Events, l, events.Event{Type: events.StatusChanged, AccountID: id, Reason: status}, clock(s.Now))
	return s.Profile(ctx, id)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role string) (*models.Account, error) {
	pw, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &models.Account{
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		PasswordHash: pw,
		Role:         role,
		Status:       domain.StatusActive,
	}
	if err := s.Repo.Create(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func wrapStore(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
