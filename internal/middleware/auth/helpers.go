package auth

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/logging"
)

const identityKey = "identity"

type ctxKey struct{}

func setIdentity(c echo.Context, id *domain.Identity) {
	c.Set(identityKey, id)

	ctx := WithIdentity(c.Request().Context(), id)
	ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("account_id", id.AccountID))
	c.SetRequest(c.Request().WithContext(ctx))
}

func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity accepted by RequireAuth for this request.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	id, ok := c.Get(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*domain.Identity)
	return id, ok && id != nil
}
