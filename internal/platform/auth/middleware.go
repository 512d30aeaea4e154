package auth

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/apperror"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated user attached to the request context. It is
// a snapshot looked up at request time, not the raw token claims.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// IdentityResolver loads the identity for a verified token subject. A nil
// identity with a nil error means the account no longer exists.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (*Identity, error)
}

// RequireSession verifies the session cookie and attaches the resolved
// identity to the request context. Requests without a cookie are rejected
// with 401 before the handler runs; a token whose account has since been
// deleted still passes, with no identity attached, so handlers can report
// the missing account themselves.
//
// The client always sees the same 401 for a bad token; whether it was
// expired or failed validation only shows up in the debug log.
func RequireSession(tokens *TokenService, resolver IdentityResolver, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, ok := Extract(c.Request())
			if !ok {
				return apperror.Unauthenticated("Not authorized, no token")
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				logger.Debug().Err(err).
					Str("path", c.Request().URL.Path).
					Msg("session token rejected")
				return apperror.Unauthenticated("Not authorized, token failed")
			}

			identity, err := resolver.ResolveIdentity(c.Request().Context(), userID)
			if err != nil {
				return err
			}
			if identity != nil {
				ctx := context.WithValue(c.Request().Context(), identityKey, identity)
				c.SetRequest(c.Request().WithContext(ctx))
			}

			return next(c)
		}
	}
}

// CurrentUser returns the identity attached by RequireSession, or nil when
// the session's account no longer exists.
func CurrentUser(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
