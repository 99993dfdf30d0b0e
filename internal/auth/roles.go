package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/newsroom-labs/cms-service/internal/domain"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

// RequireRole ensures the authenticated caller holds one of the allowed roles.
// It must run after AuthMiddleware.Handle. No route needs a role yet; every
// authenticated endpoint is open to both user and admin.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(UnauthorizedMessage)
		}
		if len(allowed) > 0 && !principal.Identity.HasRole(allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
