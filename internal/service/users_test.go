package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/events"
)

func TestUserService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sum, err := env.users.Register(ctx, RegisterInput{Username: " Alice ", Password: "correct-horse", DisplayName: "Alice A."})
	require.NoError(t, err)
	assert.Equal(t, "alice", sum.Username)
	assert.Equal(t, "Alice A.", sum.DisplayName)
	assert.Equal(t, domain.RoleUser, sum.Role)

	stored, err := env.repo.FindByID(ctx, sum.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Zero(t, stored.RefreshEpoch)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash)

	_, err = env.users.Register(ctx, RegisterInput{Username: "ALICE", Password: "another-pass"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.Equal(t, []string{events.UserRegistered}, env.pub.types())
}

func TestUserService_Register_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "empty username", in: RegisterInput{Username: "", Password: "correct-horse"}},
		{name: "short username", in: RegisterInput{Username: "al", Password: "correct-horse"}},
		{name: "bad characters", in: RegisterInput{Username: "al ice!", Password: "correct-horse"}},
		{name: "empty password", in: RegisterInput{Username: "alice", Password: ""}},
		{name: "short password", in: RegisterInput{Username: "alice", Password: "short"}},
		{name: "long password", in: RegisterInput{Username: "alice", Password: strings.Repeat("p", 73)}},
		{name: "long display name", in: RegisterInput{Username: "alice", Password: "correct-horse", DisplayName: strings.Repeat("d", 129)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := env.users.Register(context.Background(), tt.in)
			assert.Nil(t, sum)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "correct-horse")

	login, err := env.auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	err = env.users.ChangePassword(ctx, alice.ID, "wrong-password", "battery-staple")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	err = env.users.ChangePassword(ctx, alice.ID, "correct-horse", "short")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, env.users.ChangePassword(ctx, alice.ID, "correct-horse", "battery-staple"))

	_, err = env.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	_, err = env.auth.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	res, err := env.auth.Login(ctx, "alice", "battery-staple")
	require.NoError(t, err)
	claims, err := env.codec.ParseAccess(res.AccessToken)
	require.NoError(t, err)
	assert.EqualValues(t, 1, claims.Epoch)

	assert.Contains(t, env.pub.types(), events.PasswordChanged)
}

func TestUserService_DeleteSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "correct-horse")

	login, err := env.auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteSelf(ctx, alice.ID))

	_, err = env.auth.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	p, err := env.users.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, p.Status)

	assert.ErrorIs(t, env.users.DeleteSelf(ctx, uuid.New()), domain.ErrNotFound)
}

func TestUserService_SetStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "correct-horse")

	_, err := env.users.SetStatus(ctx, alice.ID, "SUSPENDED")
	assert.ErrorIs(t, err, domain.ErrValidation)

	p, err := env.users.SetStatus(ctx, alice.ID, "inactive")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, p.Status)

	_, err = env.auth.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrAccountNotActive)

	_, err = env.users.SetStatus(ctx, alice.ID, domain.StatusActive)
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "alice", "correct-horse")
	assert.NoError(t, err)

	_, err = env.users.SetStatus(ctx, uuid.New(), domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_ProfileAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "correct-horse")

	p, err := env.users.UpdateProfile(ctx, alice.ID, "  Alice  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Nil(t, p.LastLoginAt)

	_, err = env.users.UpdateProfile(ctx, alice.ID, strings.Repeat("x", 129))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.users.Profile(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.EnsureAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = env.users.EnsureAdmin(ctx, "root", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.users.EnsureAdmin(ctx, "root", "admin-password")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := env.auth.Login(ctx, "root", "admin-password")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Account.Role)

	_, err = env.users.EnsureAdmin(ctx, "other", "short")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
