package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// Scope grants access to a class of user endpoints.
type Scope string

const (
	ScopeUsersRead  Scope = "users:read"
	ScopeUsersWrite Scope = "users:write"
)

// AllScopes is granted by default to issued tokens.
var AllScopes = []Scope{ScopeUsersRead, ScopeUsersWrite}

// HasScope reports whether the principal was granted scope.
func (p *Principal) HasScope(scope Scope) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// RequireScope rejects requests without an authenticated principal holding
// scope. It must run after AuthMiddleware.Handle.
func RequireScope(scope Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.HasScope(scope) {
			return apperrors.NewForbidden("missing scope " + string(scope))
		}
		return c.Next()
	}
}
