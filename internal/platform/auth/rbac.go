package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/apperror"
)

// RoleSet is the set of roles allowed through a RequireRole gate.
type RoleSet map[string]struct{}

// Roles builds a RoleSet from the given role names.
func Roles(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Contains reports whether the role is in the set.
func (rs RoleSet) Contains(role string) bool {
	_, ok := rs[role]
	return ok
}

// RequireRole returns middleware rejecting requests whose identity does not
// carry one of the allowed roles. It must run after RequireSession; a
// request that reaches it without an identity is rejected.
func RequireRole(allowed RoleSet) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := CurrentUser(c.Request().Context())
			if identity == nil {
				return apperror.Forbidden("none")
			}
			if !allowed.Contains(identity.Role) {
				return apperror.Forbidden(identity.Role)
			}
			return next(c)
		}
	}
}
