package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/user_auth/internal/db"
	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/events"
	"github.com/Skotchmaster/user_auth/internal/hash"
	"github.com/Skotchmaster/user_auth/internal/metrics"
	"github.com/Skotchmaster/user_auth/internal/repo"
	"github.com/Skotchmaster/user_auth/internal/tokens"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	auth  *AuthService
	users *UserService
	repo  *repo.GormRepo
	codec *tokens.Codec
	pub   *recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	hasher, err := hash.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	codec, err := tokens.NewCodec(tokens.Config{
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "user_auth",
	})
	require.NoError(t, err)

	r := repo.NewGormRepo(gdb)
	pub := &recorder{}
	m := metrics.NewAuth(prometheus.NewRegistry())

	return &testEnv{
		auth:  NewAuthService(r, hasher, codec, pub, m),
		users: NewUserService(r, hasher, pub),
		repo:  r,
		codec: codec,
		pub:   pub,
	}
}

func (e *testEnv) register(t *testing.T, username, password string) *domain.AccountSummary {
	t.Helper()

	sum, err := e.users.Register(context.Background(), RegisterInput{Username: username, Password: password})
	require.NoError(t, err)
	return sum
}
