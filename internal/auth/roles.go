package auth

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RequireRole ensures the authenticated caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) > 0 && !slices.Contains(allowed, principal.Actor.Role) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
