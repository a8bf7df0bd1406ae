package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fixdesk/repair-service/internal/domain"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

// RequireRole allows the request through only when the authenticated
// principal holds one of the given roles. Must run after Middleware.
func RequireRole(roles ...domain.StaffRole) fiber.Handler {
	allowed := make(map[domain.StaffRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, ok := allowed[principal.Role]; !ok {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
